package lessons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed lesson record store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS lessons (
    lesson_id TEXT PRIMARY KEY,
    course_id TEXT,
    transcript_url TEXT,
    transcript_json_url TEXT,
    transcription_status TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);
`

// OpenStore initializes or connects to the lesson database.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open lessons db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply lessons schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Register records that a lesson exists and which course owns it. Existing
// rows keep their transcript fields.
func (s *Store) Register(ctx context.Context, lessonID, courseID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lessons (lesson_id, course_id, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(lesson_id) DO UPDATE SET course_id = excluded.course_id, updated_at = excluded.updated_at`,
		lessonID,
		courseID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("register lesson: %w", err)
	}
	return nil
}

// UpdateTranscript applies a transcription state change to a lesson,
// creating the row when it does not exist yet.
func (s *Store) UpdateTranscript(ctx context.Context, lessonID string, update Update) error {
	if lessonID == "" {
		return errors.New("lesson id required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lessons (lesson_id, transcription_status, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(lesson_id) DO UPDATE SET transcription_status = excluded.transcription_status, updated_at = excluded.updated_at`,
		lessonID,
		update.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("update transcription status: %w", err)
	}

	if update.TranscriptURL != nil {
		if _, err := s.db.ExecContext(
			ctx,
			`UPDATE lessons SET transcript_url = ? WHERE lesson_id = ?`,
			*update.TranscriptURL,
			lessonID,
		); err != nil {
			return fmt.Errorf("update transcript url: %w", err)
		}
	}
	if update.TranscriptJSONURL != nil {
		if _, err := s.db.ExecContext(
			ctx,
			`UPDATE lessons SET transcript_json_url = ? WHERE lesson_id = ?`,
			*update.TranscriptJSONURL,
			lessonID,
		); err != nil {
			return fmt.Errorf("update transcript json url: %w", err)
		}
	}
	return nil
}

// Get fetches a lesson record. A missing lesson returns (nil, nil).
func (s *Store) Get(ctx context.Context, lessonID string) (*Lesson, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT lesson_id, course_id, transcript_url, transcript_json_url, transcription_status
         FROM lessons WHERE lesson_id = ?`,
		lessonID,
	)

	var (
		lesson   Lesson
		courseID sql.NullString
		url      sql.NullString
		jsonURL  sql.NullString
	)
	err := row.Scan(&lesson.LessonID, &courseID, &url, &jsonURL, &lesson.TranscriptionStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	lesson.CourseID = courseID.String
	lesson.TranscriptURL = url.String
	lesson.TranscriptJSONURL = jsonURL.String
	return &lesson, nil
}
