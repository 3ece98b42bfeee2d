package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job represents one transcription request persisted in SQLite.
type Job struct {
	ID       int64
	LessonID string
	// VideoPath, UserID, and CourseID are request inputs and immutable
	// after insertion.
	VideoPath string
	UserID    string
	CourseID  string
	Status    Status
	// TranscriptPath and TranscriptJSONPath hold published artifact URLs
	// once the job completes with output.
	TranscriptPath     string
	TranscriptJSONPath string
	ErrorMessage       string
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

// Stats aggregates job counts per status.
type Stats map[Status]int

// Total returns the number of jobs across all statuses.
func (s Stats) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}
