// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/desertthunder/runx/internal/models"
)

// MockSourceService is a test double for [services.SourceService]
type MockSourceService struct{}

func (m *MockSourceService) Login(ctx context.Context, username, password string) error {
	return nil
}

func (m *MockSourceService) FetchExportIndex(ctx context.Context) (string, error) {
	return "", nil
}

func (m *MockSourceService) ExportWorkout(ctx context.Context, entry models.ExportIndexEntry) (string, error) {
	return "", nil
}

func (m *MockSourceService) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
