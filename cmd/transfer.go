package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/runx/internal/shared"
	"github.com/desertthunder/runx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TransferDownload exports every workout listed on MapMyRun into the working directory.
func (r *Runner) TransferDownload(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	password := cmd.String("password")
	if username == "" {
		username = r.config.Credentials.MapMyRun.Username
	}
	if password == "" {
		password = r.config.Credentials.MapMyRun.Password
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: MapMyRun username and password must be set in config.toml or flags", shared.ErrMissingCredentials)
	}

	history, db, err := r.openHistory()
	if err != nil {
		r.logger.Warn("transfer history unavailable", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	engine, err := r.ensureEngine(history)
	if err != nil {
		return err
	}

	r.logger.Info("starting download", "username", username)
	r.writePlain("Starting workout download...\n\n")

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.Login:
				r.writePlain("🔑 %s\n", update.Message)
			case tasks.FetchIndex:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Export:
				if update.Step == 0 {
					r.writePlain("\n⬇ %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			}
		}
	}()

	result, err := engine.Harvest(ctx, progressCh, username, password)
	close(progressCh)

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Download Complete!")
	r.writePlain("Index: %s\n", result.IndexPath)
	r.writePlain("Exported: %d/%d workouts\n", result.Exported, result.Total)

	if result.Failed > 0 {
		r.writePlain("\nFailed to export %d workouts:\n", result.Failed)
		for _, export := range result.Exports {
			if export.Error != nil {
				r.writePlain("  - %s: %v\n", export.Entry.Title, export.Error)
			}
		}
	}

	return nil
}

// TransferUpload submits every exported workout file to Strava.
func (r *Runner) TransferUpload(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	token, err := r.stravaToken(ctx, configPath)
	if err != nil {
		return err
	}

	history, db, err := r.openHistory()
	if err != nil {
		r.logger.Warn("transfer history unavailable", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	engine, err := r.ensureEngine(history)
	if err != nil {
		return err
	}

	r.logger.Info("starting upload", "dir", r.config.Storage.WorkoutDir)
	r.writePlain("Starting workout upload...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.Submit:
				r.writePlain("⬆ %s\n", update.Message)
			case tasks.Poll:
				r.writePlain("   %s\n", update.Message)
			case tasks.Throttle:
				r.writePlain("⏳ %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Upload(ctx, progressCh, token.AccessToken)
	close(progressCh)

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Upload Complete!")
	r.writePlain("Uploaded: %d/%d workouts\n", result.Uploaded, result.Total)

	if result.Failed > 0 {
		r.writePlain("\nFailed to upload %d files:\n", result.Failed)
		for _, item := range result.Results {
			if item.Error != nil {
				r.writePlain("  - %s: %v\n", filepath.Base(item.File), item.Error)
			}
		}
	}

	return nil
}

// TransferRun runs a full MapMyRun → Strava transfer: download then upload.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	if err := r.TransferDownload(ctx, cmd); err != nil {
		return err
	}
	r.writePlain("\n")
	return r.TransferUpload(ctx, cmd)
}
