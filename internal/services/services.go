// package services defines the provider interfaces for the catalog and candidate discovery HTTP APIs
//
// Spotify (catalog), YouTube search (candidates)
package services

import (
	"context"

	"github.com/desertthunder/songdl/internal/models"
)

// CatalogProvider supplies ordered playlist items with title/artist metadata.
type CatalogProvider interface {
	// Authenticate configures credentials for subsequent requests.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// ResolvePlaylist finds a playlist by ID, falling back to a case-insensitive name match.
	ResolvePlaylist(ctx context.Context, idOrName string) (*models.Playlist, error)

	// PlaylistItems retrieves every item of a playlist in playlist order.
	PlaylistItems(ctx context.Context, playlistID string) ([]models.CatalogItem, error)

	// ExportPlaylist resolves a playlist and fetches its items.
	ExportPlaylist(ctx context.Context, idOrName string) (*models.PlaylistExport, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}

// Locator returns ranked, deduplicated source candidates for a text query.
//
// Implementations never return an error: any failure yields an empty slice.
type Locator interface {
	Locate(ctx context.Context, query string) []models.SourceCandidate
}
