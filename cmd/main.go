package main

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lfx/internal/lastfm"
	"github.com/desertthunder/lfx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var client *lastfm.Client
	if config.Credentials.LastFM.APIKey != "" {
		client = lastfm.NewClient(lastfm.ClientOpts{
			APIKey:    config.Credentials.LastFM.APIKey,
			APISecret: config.Credentials.LastFM.APISecret,
			RateLimit: config.Import.RateLimit,
		})
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Client: client,
		DB:     openDatabase(config, logger),
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "lfx",
		Usage:    "Archive and browse your Last.fm listening history",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// openDatabase opens the configured SQLite archive, returning nil when it
// cannot be opened so commands that don't need it still work.
func openDatabase(config *shared.Config, logger *log.Logger) *sql.DB {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Warn("failed to open database", "path", config.Database.Path, "error", err)
		return nil
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	return db
}
