// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the newest applied migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a default config.toml and report missing tools",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// spotifyCommand handles Spotify catalog operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "export",
				Usage: "Export a playlist's tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p", "id"},
						Usage:    "Playlist ID or name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: text, json or csv",
						Value: "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the export to this file instead of stdout",
					},
				},
				Action: r.SpotifyExport,
			},
		},
	}
}

// downloadCommand handles playlist downloads
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl"},
		Usage:   "Download playlists as MP3 files",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Download every track of a Spotify playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Playlist ID or name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: download.output_dir)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Summary format: text, json or csv",
						Value: "text",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Also write the summary to this file",
					},
				},
				Action: r.DownloadRun,
			},
		},
	}
}

// historyCommand shows recorded batches and retrieval attempts
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded batches, attempts and strategy success rates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "batch",
				Usage: "Show every attempt of one batch",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Show every attempt for a track title (with --artist)",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Track artist for --title",
			},
			&cli.BoolFlag{
				Name:  "recent",
				Usage: "Show the newest attempts across all batches",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Show per-strategy success rates",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of batches to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, json or csv",
				Value: "text",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist downloads.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist downloads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: download.output_dir)",
			},
		},
		Action: r.TUI,
	}
}
