package process

import (
	"errors"
	"fmt"
)

var (
	// ErrStopOutput may be returned by a ChunkFunc or LineFunc to stop
	// receiving output. It is not reported back to the caller.
	ErrStopOutput = errors.New("stop output")

	// ErrAlreadyRun is returned when a Runner is invoked a second time.
	ErrAlreadyRun = errors.New("runner already used")
)

// Kind sentinels matched by *StatusError via errors.Is.
var (
	ErrNonZeroExit   = errors.New("non-zero exit")
	ErrSignaled      = errors.New("signaled")
	ErrStopped       = errors.New("stopped")
	ErrUnknownStatus = errors.New("unknown status")
)

// SpawnError reports that the child could not be created. No output is ever
// delivered before a SpawnError.
type SpawnError struct {
	Command Command
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// StatusError reports a termination status other than a clean exit.
type StatusError struct {
	Outcome Outcome
	Command Command
	Message string
}

func (e *StatusError) Error() string {
	return e.Message + ": " + e.Command.String()
}

// Is matches the sentinel for e's outcome kind.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNonZeroExit:
		return e.Outcome.Kind == NonZeroExit
	case ErrSignaled:
		return e.Outcome.Kind == Signaled
	case ErrStopped:
		return e.Outcome.Kind == Stopped
	case ErrUnknownStatus:
		return e.Outcome.Kind == Unknown
	}
	return false
}

// joinErrors is errors.Join that keeps a lone error unwrapped so callers can
// still type-assert it.
func joinErrors(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return errors.Join(kept...)
	}
}
