package cmd

import (
	"errors"
	"fmt"

	"github.com/smazurov/cmdutils/internal/process"
)

// Exit codes for failures that are not a child's own exit status.
const (
	exitFailure = 1
	exitUsage   = 2
	exitSpawn   = 127
	exitSignal  = 128
)

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// ExitCode maps the result of a command to a shell-style exit status: the
// child's code when it exited, 128+signal when it was killed or stopped,
// 127 when it could not be started, 2 for usage and configuration errors,
// and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var statusErr *process.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Outcome.Kind {
		case process.NonZeroExit:
			return statusErr.Outcome.Code
		case process.Signaled, process.Stopped:
			return exitSignal + int(statusErr.Outcome.Signal)
		default:
			return exitFailure
		}
	}

	var spawnErr *process.SpawnError
	if errors.As(err, &spawnErr) {
		return exitSpawn
	}

	var usage *usageError
	if errors.As(err, &usage) {
		return exitUsage
	}
	return exitFailure
}
