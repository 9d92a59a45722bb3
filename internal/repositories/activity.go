package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/runx/internal/models"
	"github.com/desertthunder/runx/internal/shared"
)

// ActivityRepository implements [models.Repository] for [models.Activity] persistence.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new [ActivityRepository] with the given database connection
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a new activity into the database with generated ID and sequence
func (r *ActivityRepository) Create(activity *models.Activity) error {
	sequence, err := NextSequence(r.db, "activities")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if activity.ID() == "" {
		activity.SetID(shared.GenerateID())
	}

	if err := activity.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO activities (id, sequence, run_id, file_name, display_name, activity_type, strava_upload_id, strava_activity_id, uploaded_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		activity.ID(), sequence, activity.RunID(), activity.FileName(), activity.DisplayName(),
		activity.ActivityType(), activity.StravaUploadID(), activity.StravaActivityID(),
		activity.UploadedAt(), activity.CreatedAt(), activity.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

// Get retrieves an activity by ID, excluding soft-deleted activities
func (r *ActivityRepository) Get(id string) (*models.Activity, error) {
	query := selectActivityQuery + " WHERE id = ? AND deleted_at IS NULL"

	activity, err := scanActivity(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("activity not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	return activity, nil
}

// Update modifies an existing activity in the database
func (r *ActivityRepository) Update(activity *models.Activity) error {
	if err := activity.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	activity.SetUpdatedAt(now)

	query := `
		UPDATE activities
		SET run_id = ?, display_name = ?, activity_type = ?, strava_upload_id = ?, strava_activity_id = ?, uploaded_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		activity.RunID(), activity.DisplayName(), activity.ActivityType(),
		activity.StravaUploadID(), activity.StravaActivityID(), activity.UploadedAt(), now, activity.ID())
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("activity not found or already deleted: %s", activity.ID())
	}

	return nil
}

// Delete soft-deletes an activity by ID
func (r *ActivityRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE activities
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("activity not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves activities matching the given criteria, newest first.
// Supported criteria: "run_id", "activity_type", "file_name".
func (r *ActivityRepository) List(criteria map[string]any) ([]*models.Activity, error) {
	query := selectActivityQuery + " WHERE deleted_at IS NULL"
	args := []any{}

	if runID, ok := criteria["run_id"]; ok {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	if activityType, ok := criteria["activity_type"]; ok {
		query += " AND activity_type = ?"
		args = append(args, activityType)
	}
	if fileName, ok := criteria["file_name"]; ok {
		query += " AND file_name = ?"
		args = append(args, fileName)
	}
	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, activity)
	}

	return activities, rows.Err()
}

const selectActivityQuery = `
	SELECT id, sequence, run_id, file_name, display_name, activity_type, strava_upload_id, strava_activity_id, uploaded_at, created_at, updated_at, deleted_at
	FROM activities
`

func scanActivity(row rowScanner) (*models.Activity, error) {
	var (
		id               string
		sequence         int
		runID            string
		fileName         string
		displayName      string
		activityType     string
		stravaUploadID   int64
		stravaActivityID int64
		uploadedAt       time.Time
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(&id, &sequence, &runID, &fileName, &displayName, &activityType,
		&stravaUploadID, &stravaActivityID, &uploadedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	activity := models.NewActivity(sequence, fileName, displayName, activityType)
	activity.SetID(id)
	activity.SetRunID(runID)
	activity.SetStravaUploadID(stravaUploadID)
	activity.SetStravaActivityID(stravaActivityID)
	activity.SetUploadedAt(uploadedAt)
	activity.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		activity.SetDeletedAt(&deletedAt.Time)
	}

	return activity, nil
}
