// Package services defines the shared error vocabulary for lectern's media
// pipelines. Components wrap failures with a sentinel marker so callers can
// classify them with errors.Is without string matching: caller-contract
// violations (ErrValidation) fail fast and are never retried, external tool
// failures (ErrExternalTool) carry subprocess context, and so on.
package services
