package models

import (
	"fmt"
	"time"
)

// RunStage identifies which pipeline a transfer run belongs to.
type RunStage string

const (
	StageDownload RunStage = "download"
	StageUpload   RunStage = "upload"
)

// RunStatus is the completion state of a transfer run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// TransferRun records one harvest or upload invocation. The status field is
// the completion signal the progress percentage alone cannot provide.
type TransferRun struct {
	id             string
	sequence       int
	stage          RunStage
	status         RunStatus
	totalItems     int
	completedItems int
	failedItems    int
	message        string
	startedAt      time.Time
	finishedAt     *time.Time
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

// NewTransferRun creates a pending run for the given stage.
func NewTransferRun(sequence int, stage RunStage) *TransferRun {
	now := time.Now()
	return &TransferRun{
		sequence:  sequence,
		stage:     stage,
		status:    RunPending,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *TransferRun) ID() string             { return r.id }
func (r *TransferRun) Sequence() int          { return r.sequence }
func (r *TransferRun) Stage() RunStage        { return r.stage }
func (r *TransferRun) Status() RunStatus      { return r.status }
func (r *TransferRun) TotalItems() int        { return r.totalItems }
func (r *TransferRun) CompletedItems() int    { return r.completedItems }
func (r *TransferRun) FailedItems() int       { return r.failedItems }
func (r *TransferRun) Message() string        { return r.message }
func (r *TransferRun) StartedAt() time.Time   { return r.startedAt }
func (r *TransferRun) FinishedAt() *time.Time { return r.finishedAt }
func (r *TransferRun) CreatedAt() time.Time   { return r.createdAt }
func (r *TransferRun) UpdatedAt() time.Time   { return r.updatedAt }
func (r *TransferRun) DeletedAt() *time.Time  { return r.deletedAt }

func (r *TransferRun) SetID(id string)            { r.id = id }
func (r *TransferRun) SetStatus(s RunStatus)      { r.status = s }
func (r *TransferRun) SetMessage(m string)        { r.message = m }
func (r *TransferRun) SetStartedAt(t time.Time)   { r.startedAt = t }
func (r *TransferRun) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *TransferRun) SetDeletedAt(t *time.Time)  { r.deletedAt = t }
func (r *TransferRun) SetFinishedAt(t *time.Time) { r.finishedAt = t }

// SetCounts records item totals after a run finishes.
func (r *TransferRun) SetCounts(total, completed, failed int) {
	r.totalItems = total
	r.completedItems = completed
	r.failedItems = failed
}

// Finish marks the run as done with the given status and message.
func (r *TransferRun) Finish(status RunStatus, message string) {
	now := time.Now()
	r.status = status
	r.message = message
	r.finishedAt = &now
	r.updatedAt = now
}

// Validate checks the run's data before persistence.
func (r *TransferRun) Validate() error {
	switch r.stage {
	case StageDownload, StageUpload:
	default:
		return fmt.Errorf("invalid run stage: %q", r.stage)
	}

	switch r.status {
	case RunPending, RunRunning, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("invalid run status: %q", r.status)
	}

	if r.startedAt.IsZero() {
		return fmt.Errorf("run started_at must be set")
	}

	return nil
}
