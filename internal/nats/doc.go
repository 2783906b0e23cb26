// Package nats publishes command run events to a NATS server.
//
// A Publisher subscribes to the in-process event bus and forwards each
// run's start and outcome as JSON, fire-and-forget (core NATS, no
// JetStream). When the server is unreachable the publisher runs offline
// and the command itself is unaffected.
//
// # Subject Hierarchy
//
//	cmdutils.runs.{run_id}.started    # child spawned
//	cmdutils.runs.{run_id}.finished   # outcome, including spawn failures
//
// The prefix is configurable (--nats-subject).
//
// # Watching runs
//
//	nats sub "cmdutils.runs.>"
//	nats sub "cmdutils.runs.*.finished" | jq 'select(.outcome != "success")'
//
// # Message Formats
//
// StartedMessage:
//
//	{
//	  "run_id": "6f1c...",
//	  "host": "build-01",
//	  "timestamp": "2024-01-01T12:00:00Z",
//	  "pid": 4242,
//	  "command": "make -j8"
//	}
//
// FinishedMessage:
//
//	{
//	  "run_id": "6f1c...",
//	  "host": "build-01",
//	  "timestamp": "2024-01-01T12:00:03Z",
//	  "command": "make -j8",
//	  "outcome": "non_zero_exit",
//	  "exit_code": 2,
//	  "duration_seconds": 3.2,
//	  "stdout_bytes": 10240,
//	  "stderr_bytes": 311,
//	  "error": "command exited with 2 (status 0x200): make -j8"
//	}
package nats
