package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/desertthunder/gmsync/internal/services"
	"github.com/desertthunder/gmsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	client := services.NewClient(services.ClientOpts{
		BaseURL:   config.Service.BaseURL,
		RateLimit: config.Service.RateLimit,
		Timeout:   time.Duration(config.Service.TimeoutSeconds) * time.Second,
		DeviceID:  config.Credentials.DeviceID,
	})

	runner := NewRunner(RunnerOpts{
		Config: config,
		Client: client,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "gmsync",
		Usage:    "Sync a cloud music library with the local filesystem",
		Version:  "0.4.0",
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
