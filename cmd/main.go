package main

import (
	"context"
	"os"

	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	configPath := defaultConfigPath
	if p := os.Getenv("SONGDL_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	logger, closer, err := shared.NewTeeLogger(nil, config.Log.File)
	if err != nil {
		logger, closer, _ = shared.NewTeeLogger(nil, "")
		logger.Warn("log file disabled", "error", err)
	}
	defer closer.Close()
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	var spotifyService services.CatalogProvider
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			spotifyService = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Catalog:    spotifyService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "songdl",
		Usage:    "Download Spotify playlists as tagged MP3 files",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("application error", "error", err)
		closer.Close()
		os.Exit(1)
	}
}
