package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/shared"
)

// Setup creates the config file when missing, initializes the database, and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Config written to %s\n", configPath)
		config = shared.DefaultConfig()
	}
	r.config = config

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.writePlain("✓ Rolled back the latest migration\n")
	}

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return err
	}

	r.logger.Info("setup complete", "database", config.Database.Path, "schema_version", version)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, version)
	if !config.Database.Archive {
		r.writePlain("Set database.archive = true in %s to keep finished jobs and fetched tracks.\n", configPath)
	}
	return nil
}
