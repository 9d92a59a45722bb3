package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
)

// TransferRunRepository implements [models.Repository] for [models.TransferRun] persistence.
type TransferRunRepository struct {
	db *sql.DB
}

// NewTransferRunRepository creates a new [TransferRunRepository] with the given database connection
func NewTransferRunRepository(db *sql.DB) *TransferRunRepository {
	return &TransferRunRepository{db: db}
}

// Create inserts a new transfer run into the database with generated ID and sequence
func (r *TransferRunRepository) Create(run *models.TransferRun) error {
	sequence, err := NextSequence(r.db, "transfer_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO transfer_runs (id, sequence, stage, status, total_items, completed_items, failed_items, message, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(), sequence, string(run.Stage()), string(run.Status()),
		run.TotalItems(), run.CompletedItems(), run.FailedItems(), run.Message(),
		run.StartedAt(), nullableTime(run.FinishedAt()), run.CreatedAt(), run.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert transfer run: %w", err)
	}

	return nil
}

// Get retrieves a transfer run by ID, excluding soft-deleted runs
func (r *TransferRunRepository) Get(id string) (*models.TransferRun, error) {
	query := selectRunQuery + " WHERE id = ? AND deleted_at IS NULL"

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transfer run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer run: %w", err)
	}

	return run, nil
}

// Update modifies an existing transfer run in the database
func (r *TransferRunRepository) Update(run *models.TransferRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE transfer_runs
		SET status = ?, total_items = ?, completed_items = ?, failed_items = ?, message = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status()), run.TotalItems(), run.CompletedItems(), run.FailedItems(),
		run.Message(), nullableTime(run.FinishedAt()), now, run.ID())
	if err != nil {
		return fmt.Errorf("failed to update transfer run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transfer run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a transfer run by ID
func (r *TransferRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE transfer_runs
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete transfer run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transfer run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves transfer runs matching the given criteria, newest first.
// Supported criteria: "stage", "status".
func (r *TransferRunRepository) List(criteria map[string]any) ([]*models.TransferRun, error) {
	query := selectRunQuery + " WHERE deleted_at IS NULL"
	args := []any{}

	if stage, ok := criteria["stage"]; ok {
		query += " AND stage = ?"
		args = append(args, stage)
	}
	if status, ok := criteria["status"]; ok {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.TransferRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Latest returns the most recent run for a stage, or nil when none exist.
func (r *TransferRunRepository) Latest(stage models.RunStage) (*models.TransferRun, error) {
	query := selectRunQuery + " WHERE stage = ? AND deleted_at IS NULL ORDER BY sequence DESC LIMIT 1"

	run, err := scanRun(r.db.QueryRow(query, string(stage)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	return run, nil
}

const selectRunQuery = `
	SELECT id, sequence, stage, status, total_items, completed_items, failed_items, message, started_at, finished_at, created_at, updated_at, deleted_at
	FROM transfer_runs
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.TransferRun, error) {
	var (
		id             string
		sequence       int
		stage          string
		status         string
		totalItems     int
		completedItems int
		failedItems    int
		message        string
		startedAt      time.Time
		finishedAt     sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := row.Scan(&id, &sequence, &stage, &status, &totalItems, &completedItems, &failedItems,
		&message, &startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	run := models.NewTransferRun(sequence, models.RunStage(stage))
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetCounts(totalItems, completedItems, failedItems)
	run.SetMessage(message)
	run.SetStartedAt(startedAt)
	run.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		run.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
