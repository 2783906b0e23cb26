package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeRunStarted uint32 = iota + 1
	TypeOutput
	TypeRunFinished
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RunStartedEvent is published once the child process exists.
type RunStartedEvent struct {
	RunID     string    `json:"run_id"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for RunStartedEvent.
func (e RunStartedEvent) Type() uint32 { return TypeRunStarted }

// OutputEvent is published for every chunk read from the child.
// Only the size is carried; the bytes belong to the runner's callback.
type OutputEvent struct {
	RunID  string `json:"run_id"`
	Stream string `json:"stream"`
	Bytes  int    `json:"bytes"`
}

// Type returns the event type identifier for OutputEvent.
func (e OutputEvent) Type() uint32 { return TypeOutput }

// RunFinishedEvent is published exactly once per invocation, including
// invocations whose child could not be spawned (Outcome "spawn_error").
//
// Handlers for different event types run independently, so a subscriber
// may see RunFinishedEvent before the matching RunStartedEvent. The
// finished event alone describes the whole run.
type RunFinishedEvent struct {
	RunID    string        `json:"run_id"`
	PID      int           `json:"pid,omitempty"`
	Command  string        `json:"command"`
	Outcome  string        `json:"outcome"`
	ExitCode int           `json:"exit_code"`
	Signal   int           `json:"signal,omitempty"`
	CoreDump bool          `json:"core_dump,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	// Bytes read from each stream, including any discarded after the
	// consumer stopped.
	StdoutBytes int64 `json:"stdout_bytes"`
	StderrBytes int64 `json:"stderr_bytes"`
}

// Type returns the event type identifier for RunFinishedEvent.
func (e RunFinishedEvent) Type() uint32 { return TypeRunFinished }
