package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Login Phase = iota
	FetchIndex
	Export
	Submit
	Poll
	Throttle
)

func (p Phase) String() string {
	switch p {
	case Login:
		return "login"
	case FetchIndex:
		return "fetch_index"
	case Export:
		return "export"
	case Submit:
		return "submit"
	case Poll:
		return "poll"
	case Throttle:
		return "throttle"
	default:
		return ""
	}
}

func loggingInUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Login,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Logging in to %s...", name),
	}
}

func fetchIndexUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchIndex,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching workout index from %s...", name),
	}
}

func indexFetchedUpdate(path string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchIndex,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d workouts in index", total),
		Data:    path,
	}
}

func exportingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}

func submittingUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submit,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading: %s...", step, total, name),
	}
}

func uploadedUpdate(step, total int, name string, activityID int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Poll,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (activity %d)", step, total, name, activityID),
	}
}

func uploadFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Poll,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func throttledUpdate(step, total int, wait time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Throttle,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Rate limited, waiting %s before retrying...", wait),
	}
}
