//go:build unix

package cmd

import (
	"errors"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/smazurov/cmdutils/internal/process"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runIgnoringTerm runs a child group that ignores SIGTERM, attached to f,
// and returns its error once it exits.
func runIgnoringTerm(t *testing.T, f *forwarder) <-chan error {
	t.Helper()
	started := make(chan struct{})
	done := make(chan error, 1)
	r := process.New(process.Command{Shell: "trap '' TERM; echo ready; sleep 30"},
		process.WithLogger(quietLogger()),
		process.WithProcessGroup(),
		process.WithOnStart(f.attach),
	)
	go func() {
		done <- r.EachLine(func(_ process.Stream, line string) error {
			if line == "ready" {
				close(started)
			}
			return nil
		})
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("child did not start")
	}
	return done
}

func TestForwarderEscalatesToKill(t *testing.T) {
	f := forwardSignals(quietLogger(), 100*time.Millisecond)
	defer f.stop()

	done := runIgnoringTerm(t, f)
	f.sigs <- syscall.SIGTERM

	select {
	case err := <-done:
		var statusErr *process.StatusError
		if !errors.As(err, &statusErr) || statusErr.Outcome.Signal != syscall.SIGKILL {
			t.Errorf("error = %v, want killed by SIGKILL", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("child was not killed")
	}

	select {
	case <-f.Received():
	default:
		t.Error("Received() not closed after a signal")
	}
}

func TestForwarderWithoutKillTimeout(t *testing.T) {
	f := forwardSignals(quietLogger(), 0)
	defer f.stop()

	done := runIgnoringTerm(t, f)
	pid := int(f.pid.Load())
	f.sigs <- syscall.SIGTERM

	select {
	case err := <-done:
		t.Fatalf("child exited early: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		t.Fatalf("cleanup kill: %v", err)
	}
	<-done
}

func TestForwarderIdle(t *testing.T) {
	f := forwardSignals(quietLogger(), time.Millisecond)
	f.sigs <- syscall.SIGHUP
	select {
	case <-f.Received():
	case <-time.After(time.Second):
		t.Fatal("Received() not closed")
	}
	f.stop()
	f.stop()
}
