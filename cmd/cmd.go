// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads the TOML config.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a config.toml from the embedded template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// stravaCommand handles Strava operations
func stravaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "strava",
		Usage: "Strava operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Strava using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.StravaAuth,
			},
		},
	}
}

// transferCommand handles workout transfer operations
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer workouts from MapMyRun to Strava",
		Commands: []*cli.Command{
			{
				Name:  "download",
				Usage: "Export all workouts from MapMyRun into the working directory",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "username",
						Usage: "MapMyRun login email (overrides config)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "MapMyRun password (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output result as JSON",
					},
				},
				Action: r.TransferDownload,
			},
			{
				Name:  "upload",
				Usage: "Upload all exported workout files to Strava",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output result as JSON",
					},
				},
				Action: r.TransferUpload,
			},
			{
				Name:  "run",
				Usage: "Run a full MapMyRun → Strava transfer",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "username",
						Usage: "MapMyRun login email (overrides config)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "MapMyRun password (overrides config)",
					},
				},
				Action: r.TransferRun,
			},
		},
	}
}

// serveCommand exposes the transfer pipeline over HTTP.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP server for triggering and monitoring transfers",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for watching transfer progress.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive progress monitor",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
