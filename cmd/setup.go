package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/shared"
)

// Setup writes config.toml from the template when it is missing, then creates and migrates the session database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s\n", config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'playsum summarize <playlist-url>' to summarize anonymously\n")
	r.writePlain("2. Run 'playsum auth login --email you@example.com' to use background jobs\n")
	return nil
}
