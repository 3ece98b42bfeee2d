// Package daemon wires the transcription manager, stores, and rendition
// builder into a single-instance background service.
package daemon
