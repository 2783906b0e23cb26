package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smazurov/cmdutils/internal/events"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "cmdutils.runs"

// SubjectRunStarted returns the subject a run's start is published on.
func SubjectRunStarted(prefix, runID string) string {
	return fmt.Sprintf("%s.%s.started", prefix, runID)
}

// SubjectRunFinished returns the subject a run's outcome is published on.
func SubjectRunFinished(prefix, runID string) string {
	return fmt.Sprintf("%s.%s.finished", prefix, runID)
}

// StartedMessage announces a spawned child.
type StartedMessage struct {
	RunID     string `json:"run_id"`
	Host      string `json:"host,omitempty"`
	Timestamp string `json:"timestamp"`
	PID       int    `json:"pid"`
	Command   string `json:"command"`
}

// Marshal serializes the message to JSON.
func (m StartedMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// FinishedMessage reports how a run ended.
type FinishedMessage struct {
	RunID           string  `json:"run_id"`
	Host            string  `json:"host,omitempty"`
	Timestamp       string  `json:"timestamp"`
	Command         string  `json:"command"`
	PID             int     `json:"pid,omitempty"`
	Outcome         string  `json:"outcome"` // success, non_zero_exit, signaled, stopped, unknown, spawn_error
	ExitCode        int     `json:"exit_code"`
	Signal          int     `json:"signal,omitempty"`
	CoreDump        bool    `json:"core_dump,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	StdoutBytes     int64   `json:"stdout_bytes"`
	StderrBytes     int64   `json:"stderr_bytes"`
	Error           string  `json:"error,omitempty"`
}

// Marshal serializes the message to JSON.
func (m FinishedMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func startedMessage(ev events.RunStartedEvent, host string) StartedMessage {
	return StartedMessage{
		RunID:     ev.RunID,
		Host:      host,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		PID:       ev.PID,
		Command:   ev.Command,
	}
}

func finishedMessage(ev events.RunFinishedEvent, host string, now time.Time) FinishedMessage {
	return FinishedMessage{
		RunID:           ev.RunID,
		Host:            host,
		Timestamp:       now.UTC().Format(time.RFC3339Nano),
		Command:         ev.Command,
		PID:             ev.PID,
		Outcome:         ev.Outcome,
		ExitCode:        ev.ExitCode,
		Signal:          ev.Signal,
		CoreDump:        ev.CoreDump,
		DurationSeconds: ev.Duration.Seconds(),
		StdoutBytes:     ev.StdoutBytes,
		StderrBytes:     ev.StderrBytes,
		Error:           ev.Error,
	}
}

// UnmarshalStarted deserializes a StartedMessage from JSON.
func UnmarshalStarted(data []byte) (StartedMessage, error) {
	var m StartedMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalFinished deserializes a FinishedMessage from JSON.
func UnmarshalFinished(data []byte) (FinishedMessage, error) {
	var m FinishedMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
