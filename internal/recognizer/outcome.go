package recognizer

import "fmt"

// OutcomeKind classifies how a recognition run ended.
type OutcomeKind int

const (
	// OutcomeCompleted means the command exited with status zero.
	OutcomeCompleted OutcomeKind = iota
	// OutcomeFailed means the command exited with a non-zero status.
	OutcomeFailed
	// OutcomeCancelled means the command was stopped before finishing.
	OutcomeCancelled
	// OutcomeSpawnError means the command never started.
	OutcomeSpawnError
)

// Outcome describes the terminal state of a recognition run.
type Outcome struct {
	Kind     OutcomeKind
	ExitCode int
	Err      error
}

// CompletedOutcome reports a successful run.
func CompletedOutcome() Outcome {
	return Outcome{Kind: OutcomeCompleted}
}

// FailedOutcome reports a run that exited with the given status code.
func FailedOutcome(exitCode int) Outcome {
	return Outcome{Kind: OutcomeFailed, ExitCode: exitCode}
}

// CancelledOutcome reports a run stopped by request.
func CancelledOutcome() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}

// SpawnErrorOutcome reports a run whose process could not be launched.
func SpawnErrorOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeSpawnError, Err: err}
}

// String renders the outcome for logs and error messages.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return fmt.Sprintf("failed (exit code %d)", o.ExitCode)
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSpawnError:
		if o.Err != nil {
			return fmt.Sprintf("spawn error: %v", o.Err)
		}
		return "spawn error"
	default:
		return fmt.Sprintf("unknown outcome %d", int(o.Kind))
	}
}
