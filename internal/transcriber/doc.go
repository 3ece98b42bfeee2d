// Package transcriber coordinates lesson transcription jobs.
//
// The manager owns a durable job queue, a bounded worker pool, and a
// registry of running recognizer processes keyed by lesson. Enqueueing a
// lesson that is already being transcribed cancels the running job first,
// so at most one recognizer process exists per lesson. Terminal results are
// persisted to the queue and mirrored onto the lesson record; jobs
// interrupted by daemon shutdown stay in the processing state and are
// re-queued on the next start.
package transcriber
