package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/runx/internal/progress"
	"github.com/desertthunder/runx/internal/repositories"
	"github.com/desertthunder/runx/internal/services"
	"github.com/desertthunder/runx/internal/shared"
	"github.com/desertthunder/runx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceService
	uploader   services.UploadService
	oauth      services.OAuthService
	store      *progress.Store
	engine     tasks.TransferEngine
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceService
	Uploader   services.UploadService
	OAuth      services.OAuthService
	Store      *progress.Store
	Engine     tasks.TransferEngine
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		uploader:   opts.Uploader,
		oauth:      opts.OAuth,
		store:      opts.Store,
		engine:     opts.Engine,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, stravaCommand, transferCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// ensureStore lazily creates the file-backed progress store from configuration.
func (r *Runner) ensureStore() (*progress.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, err := progress.NewStore(r.config.Storage.ProgressDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress store: %w", err)
	}
	r.store = store
	return store, nil
}

// ensureEngine lazily builds the transfer engine from configured services.
// An engine injected through RunnerOpts wins; history is attached only when
// built here.
func (r *Runner) ensureEngine(history tasks.HistoryRecorder) (tasks.TransferEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	store, err := r.ensureStore()
	if err != nil {
		return nil, err
	}

	transfer := r.config.Transfer
	engine := tasks.NewWorkoutEngine(r.source, r.uploader, store, r.config.Storage.WorkoutDir, tasks.EngineOpts{
		PollInterval:    time.Duration(transfer.PollIntervalSeconds) * time.Second,
		MaxPollAttempts: transfer.MaxPollAttempts,
		PageRateLimit:   transfer.PageRateLimit,
		History:         history,
		Logger:          r.logger,
	})
	r.engine = engine
	return engine, nil
}

// openHistory opens the sqlite-backed transfer history when a database path is
// configured. A nil recorder with a nil error means history is disabled.
func (r *Runner) openHistory() (tasks.HistoryRecorder, *sql.DB, error) {
	path := r.config.Storage.DatabasePath
	if path == "" {
		return nil, nil, nil
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Storage.MaxOpenConns, r.config.Storage.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	history := repositories.NewHistoryService(
		repositories.NewTransferRunRepository(db),
		repositories.NewActivityRepository(db),
	)
	return history, db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
