// Package progress persists per-stage completion percentages as small JSON
// files so a separate process can poll pipeline progress without shared
// memory.
//
// Each stage owns one file, "<stage>_progress.json", holding
// {"progress": <float 0..100>}. Records are overwritten wholesale on every
// update; last write wins. A missing file reads as zero, never as an error.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Stage keys partitioning the store.
const (
	StageDownload = "download"
	StageUpload   = "upload"
)

// Record is the on-disk shape of one stage's progress.
type Record struct {
	Progress float64 `json:"progress"`
}

// Store reads and writes stage progress records under a single directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create progress directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the progress file path for a stage.
func (s *Store) Path(stage string) string {
	return filepath.Join(s.dir, stage+"_progress.json")
}

// Set overwrites the stage's record with the given percentage.
func (s *Store) Set(stage string, percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(Record{Progress: percent})
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}

	if err := os.WriteFile(s.Path(stage), data, 0644); err != nil {
		return fmt.Errorf("failed to write progress record: %w", err)
	}

	return nil
}

// Get returns the stage's last written percentage, or 0 when no record
// exists or the record is unreadable.
func (s *Store) Get(stage string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(stage))
	if err != nil {
		return 0
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return 0
	}

	return record.Progress
}

// Reset removes a stage's record so the next Get reports zero.
func (s *Store) Reset(stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(stage))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove progress record: %w", err)
	}
	return nil
}
