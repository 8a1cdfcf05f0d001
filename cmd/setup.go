package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/songdl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		m, err := shared.RollbackMigration(db)
		if err != nil {
			return err
		}
		r.logger.Warn("migration rolled back", "version", m.Version, "name", m.Name)
		r.writePlain("✓ Rolled back %s\n", m)
		return r.writeSchemaVersion(db)
	}

	ran, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, m := range ran {
		r.writePlain("  ✓ Applied %s\n", m)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	return r.writeSchemaVersion(db)
}

func (r *Runner) writeSchemaVersion(db *sql.DB) error {
	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		r.writePlain("Schema version: none\n")
		return nil
	}
	newest := applied[len(applied)-1]
	r.writePlain("Schema version: %04d (%d migrations, last applied %s)\n", newest.Version, len(applied), newest.AppliedAt.Format(time.DateTime))
	return nil
}

// SetupConfig writes the default configuration file and reports which external tools are installed.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		r.writePlain("Config already exists at %s\n", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrLocalIO, err)
		}
		r.logger.Info("config file created", "path", configPath)
		r.writePlain("✓ Config written to %s\n", configPath)
	}

	if err := config.Validate(); err != nil {
		r.writePlain("⚠ %v\n", err)
	}

	statuses, _ := r.checkTools(shared.DownloadTools(config.Download))
	r.writePlainln("External tools:")
	for _, s := range statuses {
		switch {
		case s.Found():
			r.writePlain("  ✓ %-8s %s\n", s.Name, s.Resolved)
		case s.Required:
			r.writePlain("  ✗ %-8s not found (required)\n", s.Name)
		default:
			r.writePlain("  ⚠ %-8s not found (optional)\n", s.Name)
		}
	}

	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s\n", configPath)
	r.writePlain("2. Run 'songdl setup database'\n")
	r.writePlain("3. Run 'songdl download run --playlist \"<name or id>\"'\n")
	return nil
}

// openDatabase opens the attempt log and applies pending migrations.
func openDatabase(c shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.OpenDatabase(c)
	if err != nil {
		return nil, err
	}
	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
