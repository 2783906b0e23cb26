package process

import (
	"fmt"
	"syscall"
)

// Kind is the category of a termination status.
type Kind int

// Outcome kinds.
const (
	Success Kind = iota
	NonZeroExit
	Signaled
	Stopped
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NonZeroExit:
		return "non_zero_exit"
	case Signaled:
		return "signaled"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome is the classified termination status of one invocation.
type Outcome struct {
	Kind Kind
	// Code is the exit code for Success and NonZeroExit.
	Code int
	// Signal is the terminating signal for Signaled, or the stop signal for
	// Stopped.
	Signal syscall.Signal
	// CoreDump reports whether the OS retained a core image (Signaled only).
	CoreDump bool
	// Status is the raw wait status as reported by the OS.
	Status uint32
	// PID of the child that produced the status.
	PID int
}

// Err returns nil for Success and a *StatusError describing o otherwise.
func (o Outcome) Err(cmd Command) error {
	var msg string
	switch o.Kind {
	case Success:
		return nil
	case NonZeroExit:
		msg = fmt.Sprintf("command exited with %d (status %#x)", o.Code, o.Status)
	case Signaled:
		msg = fmt.Sprintf("command was signaled with %d (%s)", int(o.Signal), o.Signal)
		if o.CoreDump {
			msg += ", core dumped"
		}
	case Stopped:
		msg = fmt.Sprintf("command was stopped with signal %d (%s), pid %d", int(o.Signal), o.Signal, o.PID)
	default:
		msg = fmt.Sprintf("unknown return status %#x", o.Status)
	}
	return &StatusError{Outcome: o, Command: cmd, Message: msg}
}
