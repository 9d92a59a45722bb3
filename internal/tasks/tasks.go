// package tasks implements workout transfer operations between fitness services.
//
// The core abstraction is TransferEngine, which orchestrates workout harvests
// and uploads. Operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers, and persist coarse percentages to the
// progress store for external pollers.
package tasks

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/progress"
	"github.com/desertthunder/runx/internal/services"
	"github.com/desertthunder/runx/internal/shared"
	"golang.org/x/time/rate"
)

// WorkoutExportResult represents the outcome of exporting a single workout.
type WorkoutExportResult struct {
	Entry models.ExportIndexEntry // Index entry the export was driven from
	File  string                  // Path of the exported file (empty on failure)
	Error error                   // Error if the export failed
}

// HarvestResult contains all data from a full harvest operation.
type HarvestResult struct {
	IndexPath string                // Path of the saved export index
	Exports   []WorkoutExportResult // Individual export results
	Total     int                   // Workouts listed in the index
	Exported  int                   // Successfully exported workouts
	Failed    int                   // Skipped workouts
}

// TransferEngine defines the long-running transfer operations.
type TransferEngine interface {
	// Harvest logs in to the source service, fetches the workout index, and
	// exports every listed workout into the working directory.
	Harvest(ctx context.Context, progress chan<- ProgressUpdate, username, password string) (*HarvestResult, error)

	// Upload submits every export file in the working directory to the
	// destination service and waits for each to finish processing.
	Upload(ctx context.Context, progress chan<- ProgressUpdate, accessToken string) (*UploadRunResult, error)
}

// HistoryRecorder persists transfer history. Recording is observational:
// failures are logged and never affect the transfer itself, and history is
// never consulted to decide what to transfer.
type HistoryRecorder interface {
	StartRun(ctx context.Context, stage models.RunStage) (*models.TransferRun, error)
	FinishRun(ctx context.Context, run *models.TransferRun) error
	RecordUpload(ctx context.Context, runID string, activity *models.Activity) error
}

// EngineOpts contains configuration for a WorkoutEngine.
type EngineOpts struct {
	PollInterval    time.Duration   // Delay between upload status polls (default: 1s)
	MaxPollAttempts int             // Status polls per upload before giving up (default: 60)
	PageRateLimit   float64         // Source page requests per second (default: 1)
	History         HistoryRecorder // Optional transfer history sink
	Logger          *log.Logger     // Defaults to a stderr logger
}

// WorkoutEngine implements TransferEngine for MapMyRun to Strava transfers.
type WorkoutEngine struct {
	source   services.SourceService
	uploader services.UploadService
	store    *progress.Store
	workDir  string
	opts     EngineOpts
	logger   *log.Logger

	// sleep is context-aware and swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWorkoutEngine creates a WorkoutEngine with the provided services. Export
// files are read from and written to workDir.
func NewWorkoutEngine(source services.SourceService, uploader services.UploadService, store *progress.Store, workDir string, opts EngineOpts) *WorkoutEngine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = 60
	}
	if opts.PageRateLimit <= 0 {
		opts.PageRateLimit = 1.0
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &WorkoutEngine{
		source:   source,
		uploader: uploader,
		store:    store,
		workDir:  workDir,
		opts:     opts,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *WorkoutEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Harvest performs a full MapMyRun export run.
//
// Login and index failures abort the run; a failed individual export is
// logged, counted, and skipped. An expired session mid-run triggers one
// re-login before the same entry is retried. The download progress store is
// updated after every entry so pollers see 100*(done/total).
func (e *WorkoutEngine) Harvest(ctx context.Context, prog chan<- ProgressUpdate, username, password string) (*HarvestResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source service not initialized", shared.ErrServiceUnavailable)
	}

	run := e.startRun(ctx, models.StageDownload)

	if err := e.store.Reset(progress.StageDownload); err != nil {
		return nil, fmt.Errorf("failed to reset progress: %w", err)
	}

	e.sendProgress(prog, loggingInUpdate(e.source.Name()))
	if err := e.source.Login(ctx, username, password); err != nil {
		e.finishRun(ctx, run, models.RunFailed, err.Error(), 0, 0, 0)
		return nil, err
	}

	e.sendProgress(prog, fetchIndexUpdate(e.source.Name()))
	indexPath, err := e.source.FetchExportIndex(ctx)
	if err != nil {
		e.finishRun(ctx, run, models.RunFailed, err.Error(), 0, 0, 0)
		return nil, fmt.Errorf("%w: %v", shared.ErrIndexUnavailable, err)
	}

	entries, err := ParseExportIndex(indexPath)
	if err != nil {
		e.finishRun(ctx, run, models.RunFailed, err.Error(), 0, 0, 0)
		return nil, fmt.Errorf("%w: %v", shared.ErrIndexUnavailable, err)
	}

	result := &HarvestResult{
		IndexPath: indexPath,
		Total:     len(entries),
		Exports:   make([]WorkoutExportResult, 0, len(entries)),
	}
	e.sendProgress(prog, indexFetchedUpdate(indexPath, result.Total))

	if result.Total == 0 {
		if err := e.store.Set(progress.StageDownload, 100); err != nil {
			return nil, fmt.Errorf("failed to write progress: %w", err)
		}
		e.finishRun(ctx, run, models.RunSucceeded, "no workouts to export", 0, 0, 0)
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(e.opts.PageRateLimit), 1)
	reloggedIn := false

	for i, entry := range entries {
		if err := limiter.Wait(ctx); err != nil {
			e.finishRun(ctx, run, models.RunFailed, err.Error(), result.Total, result.Exported, result.Failed)
			return result, err
		}

		e.sendProgress(prog, exportingUpdate(i+1, result.Total, entry.Title))

		file, err := e.source.ExportWorkout(ctx, entry)
		if errors.Is(err, shared.ErrNotAuthenticated) && !reloggedIn {
			reloggedIn = true
			e.logger.Warn("session expired, logging in again", "entry", entry.Title)
			if err = e.source.Login(ctx, username, password); err != nil {
				e.finishRun(ctx, run, models.RunFailed, err.Error(), result.Total, result.Exported, result.Failed)
				return result, err
			}
			file, err = e.source.ExportWorkout(ctx, entry)
		}

		if err != nil {
			e.logger.Error("export failed, skipping workout", "entry", entry.Title, "err", err)
			e.sendProgress(prog, exportFailedUpdate(i+1, result.Total, entry.Title, err))
			result.Failed++
		} else {
			result.Exported++
		}
		result.Exports = append(result.Exports, WorkoutExportResult{Entry: entry, File: file, Error: err})

		percent := 100 * float64(i+1) / float64(result.Total)
		if err := e.store.Set(progress.StageDownload, percent); err != nil {
			return result, fmt.Errorf("failed to write progress: %w", err)
		}
	}

	e.finishRun(ctx, run, models.RunSucceeded, harvestSummary(result), result.Total, result.Exported, result.Failed)
	return result, nil
}

func harvestSummary(result *HarvestResult) string {
	return fmt.Sprintf("exported %d of %d workouts (%d skipped)", result.Exported, result.Total, result.Failed)
}

// ParseExportIndex reads the workout index CSV. The first row is a header;
// each data row carries the workout link in its last column. Title and date
// columns are located by header name, falling back to the first two columns.
func ParseExportIndex(path string) ([]models.ExportIndexEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}

	dateCol, titleCol := 0, 1
	for i, name := range header {
		switch lower := strings.ToLower(name); {
		case strings.Contains(lower, "title"):
			titleCol = i
		case strings.Contains(lower, "date"):
			dateCol = i
		}
	}

	var entries []models.ExportIndexEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read index row: %w", err)
		}
		if len(record) < 2 {
			continue
		}

		entry := models.ExportIndexEntry{
			Link: strings.TrimSpace(record[len(record)-1]),
		}
		if dateCol < len(record) {
			entry.Date = strings.TrimSpace(record[dateCol])
		}
		if titleCol < len(record) {
			entry.Title = strings.TrimSpace(record[titleCol])
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// startRun opens a history record for the stage. History is optional and
// observational, so failures only log.
func (e *WorkoutEngine) startRun(ctx context.Context, stage models.RunStage) *models.TransferRun {
	if e.opts.History == nil {
		return nil
	}
	run, err := e.opts.History.StartRun(ctx, stage)
	if err != nil {
		e.logger.Warn("failed to record run start", "stage", stage, "err", err)
		return nil
	}
	return run
}

func (e *WorkoutEngine) finishRun(ctx context.Context, run *models.TransferRun, status models.RunStatus, message string, total, completed, failed int) {
	if run == nil || e.opts.History == nil {
		return
	}
	run.SetCounts(total, completed, failed)
	run.Finish(status, message)
	if err := e.opts.History.FinishRun(ctx, run); err != nil {
		e.logger.Warn("failed to record run finish", "stage", run.Stage(), "err", err)
	}
}

func (e *WorkoutEngine) recordUpload(ctx context.Context, run *models.TransferRun, activity *models.Activity) {
	if run == nil || e.opts.History == nil {
		return
	}
	if err := e.opts.History.RecordUpload(ctx, run.ID(), activity); err != nil {
		e.logger.Warn("failed to record upload", "file", activity.FileName(), "err", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
