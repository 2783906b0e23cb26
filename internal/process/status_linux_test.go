package process

import (
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

// Statuses are encoded the way the Linux kernel reports them.
func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   unix.WaitStatus
		want     Kind
		code     int
		signal   syscall.Signal
		coreDump bool
	}{
		{name: "exit 0", status: 0x0000, want: Success},
		{name: "exit 1", status: 0x0100, want: NonZeroExit, code: 1},
		{name: "exit 255", status: 0xff00, want: NonZeroExit, code: 255},
		{name: "SIGTERM", status: 0x000f, want: Signaled, signal: syscall.SIGTERM},
		{name: "SIGKILL", status: 0x0009, want: Signaled, signal: syscall.SIGKILL},
		{name: "SIGSEGV core", status: 0x008b, want: Signaled, signal: syscall.SIGSEGV, coreDump: true},
		{name: "SIGSTOP", status: 0x137f, want: Stopped, signal: syscall.SIGSTOP},
		{name: "SIGTSTP", status: 0x147f, want: Stopped, signal: syscall.SIGTSTP},
		{name: "continued", status: 0xffff, want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, 99)
			if got.Kind != tt.want {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.want)
			}
			if got.Code != tt.code {
				t.Errorf("Code = %d, want %d", got.Code, tt.code)
			}
			if got.Signal != tt.signal {
				t.Errorf("Signal = %v, want %v", got.Signal, tt.signal)
			}
			if got.CoreDump != tt.coreDump {
				t.Errorf("CoreDump = %v, want %v", got.CoreDump, tt.coreDump)
			}
			if got.Status != uint32(tt.status) {
				t.Errorf("Status = %#x, want %#x", got.Status, uint32(tt.status))
			}
			if got.PID != 99 {
				t.Errorf("PID = %d, want 99", got.PID)
			}
		})
	}
}
