package models

// ExportIndexEntry is one data row of the source service's export index.
// The link points at the workout detail page used to trigger an export.
type ExportIndexEntry struct {
	Date  string
	Title string
	Link  string
}

// ActivityDescriptor is the display name and activity type derived from an
// export filename. Derived, never stored.
type ActivityDescriptor struct {
	DisplayName  string
	ActivityType string
}

// UploadRequest describes a single file submission to the destination service.
type UploadRequest struct {
	FilePath     string
	DataType     string // wire format identifier, e.g. "tcx"
	Name         string
	Description  string
	ActivityType string
}

// UploadHandle represents an in-progress remote processing job returned by
// the destination service's uploads endpoint.
type UploadHandle struct {
	ID         int64
	ExternalID string
}

// UploadStatus is a snapshot of a remote processing job.
type UploadStatus struct {
	ID         int64
	ActivityID int64
	Status     string
	Error      string
}

// Processed reports whether the remote service finished processing the upload.
func (s *UploadStatus) Processed() bool {
	return s.ActivityID != 0
}

// Rejected reports whether the remote service rejected the upload.
func (s *UploadStatus) Rejected() bool {
	return s.Error != ""
}
