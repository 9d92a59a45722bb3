package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/runx/internal/classify"
	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/progress"
	"github.com/desertthunder/runx/internal/services"
	"github.com/desertthunder/runx/internal/shared"
)

// uploadDescription is attached to every activity created on the destination.
const uploadDescription = "Uploaded from MapMyRun"

// UploadItemResult represents the outcome of uploading a single export file.
type UploadItemResult struct {
	File         string // Path of the export file
	DisplayName  string // Activity name derived from the filename
	ActivityType string // Activity type derived from the filename
	UploadID     int64  // Remote upload job ID (0 if submission failed)
	ActivityID   int64  // Created activity ID (0 on failure)
	Error        error  // Error if the upload failed
}

// UploadRunResult contains all data from a full upload operation.
type UploadRunResult struct {
	Results  []UploadItemResult // Individual upload results
	Total    int                // Export files found in the working directory
	Uploaded int                // Successfully processed uploads
	Failed   int                // Skipped files
}

// Upload submits every export file in the working directory to the
// destination service, in filename order.
//
// Each file is classified from its name, submitted, and polled until the
// remote job finishes processing or the poll budget runs out. A rate-limited
// response pauses for the server's delay and retries the same file without
// advancing progress. Any other failure is logged, counted, and skipped.
// Files are never deleted or marked, so a later run uploads them again.
func (e *WorkoutEngine) Upload(ctx context.Context, prog chan<- ProgressUpdate, accessToken string) (*UploadRunResult, error) {
	if e.uploader == nil {
		return nil, fmt.Errorf("%w: upload service not initialized", shared.ErrServiceUnavailable)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrNotAuthenticated)
	}

	run := e.startRun(ctx, models.StageUpload)

	if err := e.store.Reset(progress.StageUpload); err != nil {
		return nil, fmt.Errorf("failed to reset progress: %w", err)
	}

	files, err := listExportFiles(e.workDir)
	if err != nil {
		e.finishRun(ctx, run, models.RunFailed, err.Error(), 0, 0, 0)
		return nil, err
	}

	result := &UploadRunResult{
		Total:   len(files),
		Results: make([]UploadItemResult, 0, len(files)),
	}

	if result.Total == 0 {
		if err := e.store.Set(progress.StageUpload, 100); err != nil {
			return nil, fmt.Errorf("failed to write progress: %w", err)
		}
		e.finishRun(ctx, run, models.RunSucceeded, "no export files to upload", 0, 0, 0)
		return result, nil
	}

	for i, file := range files {
		descriptor := classify.Filename(filepath.Base(file))
		item := UploadItemResult{
			File:         file,
			DisplayName:  descriptor.DisplayName,
			ActivityType: descriptor.ActivityType,
		}

		e.sendProgress(prog, submittingUpdate(i+1, result.Total, descriptor.DisplayName))

		status, uploadID, err := e.uploadFile(ctx, prog, accessToken, file, descriptor, i+1, result.Total)
		item.UploadID = uploadID
		if err != nil {
			if ctx.Err() != nil {
				e.finishRun(ctx, run, models.RunFailed, ctx.Err().Error(), result.Total, result.Uploaded, result.Failed)
				return result, ctx.Err()
			}
			e.logger.Error("upload failed, skipping file", "file", filepath.Base(file), "err", err)
			e.sendProgress(prog, uploadFailedUpdate(i+1, result.Total, descriptor.DisplayName, err))
			item.Error = err
			result.Failed++
		} else {
			item.ActivityID = status.ActivityID
			result.Uploaded++
			e.sendProgress(prog, uploadedUpdate(i+1, result.Total, descriptor.DisplayName, status.ActivityID))

			activity := models.NewActivity(0, filepath.Base(file), descriptor.DisplayName, descriptor.ActivityType)
			activity.SetStravaUploadID(uploadID)
			activity.SetStravaActivityID(status.ActivityID)
			activity.SetUploadedAt(time.Now())
			e.recordUpload(ctx, run, activity)
		}
		result.Results = append(result.Results, item)

		percent := 100 * float64(i+1) / float64(result.Total)
		if err := e.store.Set(progress.StageUpload, percent); err != nil {
			return result, fmt.Errorf("failed to write progress: %w", err)
		}
	}

	e.finishRun(ctx, run, models.RunSucceeded, uploadSummary(result), result.Total, result.Uploaded, result.Failed)
	return result, nil
}

func uploadSummary(result *UploadRunResult) string {
	return fmt.Sprintf("uploaded %d of %d workouts (%d skipped)", result.Uploaded, result.Total, result.Failed)
}

// uploadFile submits one file and polls it to completion. Rate limits on
// either call pause for the server's delay and retry in place.
func (e *WorkoutEngine) uploadFile(ctx context.Context, prog chan<- ProgressUpdate, accessToken, file string, descriptor models.ActivityDescriptor, step, total int) (*models.UploadStatus, int64, error) {
	request := models.UploadRequest{
		FilePath:     file,
		DataType:     strings.TrimPrefix(classify.Extension, "."),
		Name:         descriptor.DisplayName,
		Description:  uploadDescription,
		ActivityType: descriptor.ActivityType,
	}

	var handle *models.UploadHandle
	for {
		var err error
		handle, err = e.uploader.Upload(ctx, accessToken, request)
		if err == nil {
			break
		}
		if wait, limited := rateLimitDelay(err); limited {
			e.sendProgress(prog, throttledUpdate(step, total, wait))
			if err := e.sleep(ctx, wait); err != nil {
				return nil, 0, err
			}
			continue
		}
		return nil, 0, err
	}

	status, err := e.pollUpload(ctx, prog, accessToken, handle.ID, step, total)
	if err != nil {
		return nil, handle.ID, err
	}
	return status, handle.ID, nil
}

// pollUpload polls the remote processing job until it yields an activity, is
// rejected, or the attempt budget runs out.
func (e *WorkoutEngine) pollUpload(ctx context.Context, prog chan<- ProgressUpdate, accessToken string, uploadID int64, step, total int) (*models.UploadStatus, error) {
	for attempt := 0; attempt < e.opts.MaxPollAttempts; attempt++ {
		status, err := e.uploader.UploadStatus(ctx, accessToken, uploadID)
		if err != nil {
			if wait, limited := rateLimitDelay(err); limited {
				e.sendProgress(prog, throttledUpdate(step, total, wait))
				if err := e.sleep(ctx, wait); err != nil {
					return nil, err
				}
				// A throttled poll got no answer, so it spends no attempt.
				attempt--
				continue
			}
			return nil, err
		}

		if status.Rejected() {
			return nil, fmt.Errorf("%w: %s", shared.ErrUploadRejected, status.Error)
		}
		if status.Processed() {
			return status, nil
		}

		if err := e.sleep(ctx, e.opts.PollInterval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: upload %d not processed after %d polls", shared.ErrProcessingTimeout, uploadID, e.opts.MaxPollAttempts)
}

func rateLimitDelay(err error) (time.Duration, bool) {
	var rle *services.RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// listExportFiles returns the export files in dir sorted by name. Only files
// with the export extension count; the index CSV and anything else are
// ignored.
func listExportFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read working directory: %w", err)
	}

	var files []string
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), classify.Extension) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}
