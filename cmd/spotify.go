package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songdl/internal/formatter"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	catalog, err := r.authenticatedCatalog(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := catalog.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// SpotifyExport prints or saves a playlist with all of its tracks.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.String("playlist")
	outputFile := cmd.String("output")

	if playlist == "" {
		return fmt.Errorf("%w: --playlist flag is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	catalog, err := r.authenticatedCatalog(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("exporting spotify playlist %v", playlist)

	export, err := catalog.ExportPlaylist(ctx, playlist)
	if err != nil {
		return err
	}

	data, err := renderExport(export, format)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := formatter.WriteReport(outputFile, data); err != nil {
			return err
		}
		r.logger.Infof("playlist exported to %v with %v tracks", outputFile, len(export.Items))

		r.writePlain("✓ Playlist exported to %s\n", outputFile)
		r.writePlain("  Playlist: %s\n", export.Playlist.Name)
		r.writePlain("  Tracks: %d\n", len(export.Items))
		return nil
	}

	return r.writeBytes(data)
}

func renderExport(export *models.PlaylistExport, f formatter.Format) ([]byte, error) {
	switch f {
	case formatter.JSON:
		return shared.MarshalJSON(export, true)
	case formatter.CSV:
		return formatter.ExportToCSV(export)
	default:
		return formatter.ExportToText(export)
	}
}
