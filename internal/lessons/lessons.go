// Package lessons persists per-lesson transcription results so the course
// catalog can surface caption availability.
package lessons

import "context"

// Update describes a transcription state change for a lesson. Nil pointer
// fields leave the stored value untouched; Status is always written.
type Update struct {
	TranscriptURL     *string
	TranscriptJSONURL *string
	Status            string
}

// Lesson is the stored transcription view of a lesson.
type Lesson struct {
	LessonID            string
	CourseID            string
	TranscriptURL       string
	TranscriptJSONURL   string
	TranscriptionStatus string
}

// Updater receives transcription results for lessons.
type Updater interface {
	UpdateTranscript(ctx context.Context, lessonID string, update Update) error
}
