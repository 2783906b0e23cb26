//go:build unix

package process

import (
	"errors"
	"io/fs"
	"strings"
	"syscall"
	"testing"
)

func TestOutcomeErrMessages(t *testing.T) {
	cmd := Command{Shell: "make build"}

	tests := []struct {
		name     string
		outcome  Outcome
		sentinel error
		contains []string
	}{
		{
			name:     "non-zero exit",
			outcome:  Outcome{Kind: NonZeroExit, Code: 3, Status: 0x300},
			sentinel: ErrNonZeroExit,
			contains: []string{"command exited with 3", "0x300", "make build"},
		},
		{
			name:     "signaled",
			outcome:  Outcome{Kind: Signaled, Signal: syscall.SIGTERM, Status: 0xf},
			sentinel: ErrSignaled,
			contains: []string{"signaled with 15", "make build"},
		},
		{
			name:     "signaled with core",
			outcome:  Outcome{Kind: Signaled, Signal: syscall.SIGSEGV, CoreDump: true, Status: 0x8b},
			sentinel: ErrSignaled,
			contains: []string{"signaled with 11", "core dumped"},
		},
		{
			name:     "stopped",
			outcome:  Outcome{Kind: Stopped, Signal: syscall.SIGSTOP, Status: 0x137f, PID: 4242},
			sentinel: ErrStopped,
			contains: []string{"stopped with signal", "pid 4242", "make build"},
		},
		{
			name:     "unknown",
			outcome:  Outcome{Kind: Unknown, Status: 0xffff},
			sentinel: ErrUnknownStatus,
			contains: []string{"unknown return status 0xffff", "make build"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.outcome.Err(cmd)
			if err == nil {
				t.Fatal("Err() = nil")
			}
			for _, s := range tt.contains {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q does not contain %q", err, s)
				}
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			for _, other := range []error{ErrNonZeroExit, ErrSignaled, ErrStopped, ErrUnknownStatus} {
				if other != tt.sentinel && errors.Is(err, other) {
					t.Errorf("error also matches %v", other)
				}
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error is %T, want *StatusError", err)
			}
			if statusErr.Outcome.Status != tt.outcome.Status {
				t.Errorf("Status = %#x, want %#x", statusErr.Outcome.Status, tt.outcome.Status)
			}
			if statusErr.Command.Shell != cmd.Shell {
				t.Errorf("Command = %v, want %v", statusErr.Command, cmd)
			}
		})
	}
}

func TestOutcomeErrSuccess(t *testing.T) {
	if err := (Outcome{Kind: Success}).Err(Command{Shell: "true"}); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestSpawnErrorUnwrap(t *testing.T) {
	err := error(&SpawnError{Command: Command{Args: []string{"missing"}}, Err: fs.ErrNotExist})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("SpawnError should unwrap to the OS error")
	}
	if !strings.Contains(err.Error(), "spawn missing") {
		t.Errorf("unexpected message %q", err)
	}
}

func TestJoinErrors(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")

	if joinErrors(nil, nil) != nil {
		t.Error("joining nils should be nil")
	}
	if joinErrors(nil, a) != a {
		t.Error("a single error should be returned as is")
	}
	joined := joinErrors(a, nil, b)
	if !errors.Is(joined, a) || !errors.Is(joined, b) {
		t.Errorf("joined error %v lost a member", joined)
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{
		Success:     "success",
		NonZeroExit: "non_zero_exit",
		Signaled:    "signaled",
		Stopped:     "stopped",
		Unknown:     "unknown",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
