// Package recognizer wraps the external speech recognition command that
// produces SRT captions for lesson videos.
//
// The service builds the command line from configuration and hands back a
// Process handle for each launched run. Callers wait on the handle for a
// classified Outcome and may stop a run early, which signals the child with
// SIGTERM and escalates to SIGKILL after a short grace period.
package recognizer
