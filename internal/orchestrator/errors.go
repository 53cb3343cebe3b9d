package orchestrator

import (
	"errors"
	"fmt"

	"github.com/michaelbrown/opencompiler/internal/metrics"
)

// Kind classifies why a run was aborted.
type Kind int

const (
	KindNotSupported Kind = iota + 1
	KindSetup
	KindCompileFailed
	KindToolNotFound
	KindExecution
)

// String returns the outcome label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindNotSupported:
		return metrics.OutcomeNotSupported
	case KindSetup:
		return metrics.OutcomeSetupError
	case KindCompileFailed:
		return metrics.OutcomeCompileFailed
	case KindToolNotFound:
		return metrics.OutcomeToolNotFound
	case KindExecution:
		return metrics.OutcomeExecError
	default:
		return "unknown"
	}
}

// RunError describes an aborted run. Notice is the text that was emitted to
// subscribers in place of program output.
type RunError struct {
	Kind     Kind
	Language string
	RunID    string
	Notice   string
	Err      error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Language)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Language, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// KindOf returns the Kind of a *RunError in err's chain, or 0.
func KindOf(err error) Kind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}
