package models

import (
	"fmt"
	"time"
)

// Activity is the persisted record of one file submitted to the destination
// service. History only: the working directory remains the upload work queue
// and nothing here de-duplicates a later run.
type Activity struct {
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
	deletedAt        *time.Time
}

// NewActivity creates an activity record for an uploaded file.
func NewActivity(sequence int, fileName, displayName, activityType string) *Activity {
	now := time.Now()
	return &Activity{
		sequence:     sequence,
		fileName:     fileName,
		displayName:  displayName,
		activityType: activityType,
		uploadedAt:   now,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (a *Activity) ID() string              { return a.id }
func (a *Activity) Sequence() int           { return a.sequence }
func (a *Activity) RunID() string           { return a.runID }
func (a *Activity) FileName() string        { return a.fileName }
func (a *Activity) DisplayName() string     { return a.displayName }
func (a *Activity) ActivityType() string    { return a.activityType }
func (a *Activity) StravaUploadID() int64   { return a.stravaUploadID }
func (a *Activity) StravaActivityID() int64 { return a.stravaActivityID }
func (a *Activity) UploadedAt() time.Time   { return a.uploadedAt }
func (a *Activity) CreatedAt() time.Time    { return a.createdAt }
func (a *Activity) UpdatedAt() time.Time    { return a.updatedAt }
func (a *Activity) DeletedAt() *time.Time   { return a.deletedAt }

func (a *Activity) SetID(id string)              { a.id = id }
func (a *Activity) SetRunID(id string)           { a.runID = id }
func (a *Activity) SetStravaUploadID(id int64)   { a.stravaUploadID = id }
func (a *Activity) SetStravaActivityID(id int64) { a.stravaActivityID = id }
func (a *Activity) SetUploadedAt(t time.Time)    { a.uploadedAt = t }
func (a *Activity) SetUpdatedAt(t time.Time)     { a.updatedAt = t }
func (a *Activity) SetDeletedAt(t *time.Time)    { a.deletedAt = t }

// Validate checks the activity's data before persistence.
func (a *Activity) Validate() error {
	if a.fileName == "" {
		return fmt.Errorf("activity file name must be set")
	}
	if a.displayName == "" {
		return fmt.Errorf("activity display name must be set")
	}
	if a.activityType == "" {
		return fmt.Errorf("activity type must be set")
	}
	return nil
}
