package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/runx/internal/models"
)

// HistoryService implements tasks.HistoryRecorder on top of the run and
// activity repositories.
//
// History is observational only. The working directory remains the upload
// work queue; nothing recorded here is consulted to decide what a later run
// transfers.
type HistoryService struct {
	runs       *TransferRunRepository
	activities *ActivityRepository
}

// NewHistoryService creates a HistoryService with the given repositories
func NewHistoryService(runs *TransferRunRepository, activities *ActivityRepository) *HistoryService {
	return &HistoryService{runs: runs, activities: activities}
}

// StartRun persists a new running transfer run for the stage.
func (s *HistoryService) StartRun(ctx context.Context, stage models.RunStage) (*models.TransferRun, error) {
	run := models.NewTransferRun(0, stage)
	run.SetStatus(models.RunRunning)

	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	return run, nil
}

// FinishRun persists the run's final status and counts.
func (s *HistoryService) FinishRun(ctx context.Context, run *models.TransferRun) error {
	if err := s.runs.Update(run); err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// RecordUpload persists one successfully uploaded activity, attached to the
// run when one was recorded.
func (s *HistoryService) RecordUpload(ctx context.Context, runID string, activity *models.Activity) error {
	activity.SetRunID(runID)

	if err := s.activities.Create(activity); err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}
