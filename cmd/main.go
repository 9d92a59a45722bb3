package main

import (
	"context"
	"os"
	"time"

	"github.com/desertthunder/runx/internal/services"
	"github.com/desertthunder/runx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	exportTimeout := time.Duration(config.Transfer.ExportTimeoutSeconds) * time.Second

	var source services.SourceService
	if svc, err := services.NewMapMyRunService(config.Credentials.MapMyRun.BaseURL, config.Storage.WorkoutDir, exportTimeout); err == nil {
		source = svc
	} else {
		logger.Warn("source service unavailable", "error", err)
	}

	var uploader services.UploadService
	var oauth services.OAuthService
	if config.Credentials.Strava.ClientID != "" && config.Credentials.Strava.ClientSecret != "" {
		if svc, err := services.NewStravaService(config.Credentials.Strava.Map()); err == nil {
			uploader = svc
			oauth = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Source:     source,
		Uploader:   uploader,
		OAuth:      oauth,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "runx",
		Usage:    "Transfer workouts from MapMyRun to Strava",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
