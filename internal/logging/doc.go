// Package logging builds the slog loggers used across lectern.
//
// Loggers are constructed from Options (level, format, output paths) or
// directly from application config. Two handlers are provided: a JSON handler
// for log files and machine consumers, and a console handler that colorizes
// output when attached to a terminal.
//
// The attr helpers (String, Int, Error, ...) keep call sites consistent and
// make it easy to swap the underlying implementation later.
package logging
