// Package queue persists transcription jobs in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages the database connection, schema migrations, status
// transitions, and stuck-job recovery. Jobs move QUEUED -> PROCESSING ->
// {COMPLETED | FAILED | CANCELLED}; terminal rows are never mutated again,
// and a repeated request for the same lesson inserts a fresh row instead.
//
// The database is transient storage for in-flight work, not an archive:
// jobs left in PROCESSING by a crashed daemon are returned to QUEUED by
// ResetStuckProcessing at the next startup, giving at-least-once execution.
package queue
