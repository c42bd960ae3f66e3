package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/playsum/internal/repositories"
	"github.com/desertthunder/playsum/internal/shared"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	if level, err := shared.ParseLogLevel(config.Log.Level); err == nil {
		shared.SetLogLevel(logger, level)
	} else {
		logger.Warn("invalid log level, using info", "level", config.Log.Level)
		shared.SetLogLevel(logger, log.InfoLevel)
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		HTTPClient: &http.Client{Timeout: config.RequestTimeout()},
		Logger:     logger,
	}

	if db, err := shared.OpenDatabase(config.Database); err == nil {
		defer db.Close()
		opts.Sessions = repositories.NewSessionRepository(db)
		opts.Preferences = repositories.NewPreferenceRepository(db)
	} else {
		logger.Debug("session database unavailable, running anonymously", "error", err)
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "playsum",
		Usage:    "Summarize YouTube playlists and track background summarization jobs",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("%v", err)
	}
}
