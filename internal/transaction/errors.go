package transaction

import (
	"errors"
	"fmt"
)

// Phase names the lifecycle phase an element failed in.
type Phase string

const (
	PhasePrepare Phase = "prepare"
	PhaseCommit  Phase = "commit"
)

// ErrRunning is returned when a running transaction is modified.
var ErrRunning = errors.New("transaction is running")

// StepError reports the element that halted a run. Phase tells a
// pre-condition failure (PhasePrepare) from a failed effect (PhaseCommit).
type StepError struct {
	Phase Phase
	Title string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Title, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Reason returns the message of the underlying cause.
func (e *StepError) Reason() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// IsPrepareFailure checks if err is a failed prepare phase.
func IsPrepareFailure(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Phase == PhasePrepare
}

// IsCommitFailure checks if err is a failed commit phase.
func IsCommitFailure(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Phase == PhaseCommit
}

// FailedTitle returns the title of the element that failed, or "".
func FailedTitle(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Title
	}
	return ""
}
