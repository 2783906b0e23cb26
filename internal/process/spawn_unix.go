//go:build unix

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// closedFD asks ForkExec to close the corresponding descriptor in the child.
const closedFD = ^uintptr(0)

var errAlreadyWaited = errors.New("status already collected")

// running owns the read ends of the child's output pipes and its pid until
// the status has been collected.
type running struct {
	pid    int
	fds    [2]int // indexed by Stream; -1 once closed
	waited bool
}

// start spawns cmd with stdin closed and stdout/stderr on fresh pipes. Every
// descriptor from 3 up, including ones inherited by cmdutils itself, is
// marked close-on-exec first, so the child inherits exactly fds 1 and 2.
// The parent keeps using those descriptors; only exec drops them. The
// parent's copies of the write ends are closed before returning;
// otherwise EOF would never be seen on the read ends. With newGroup the
// child leads a process group of its own.
func start(cmd Command, newGroup bool) (*running, error) {
	argv, err := cmd.argv()
	if err != nil {
		return nil, &SpawnError{Command: cmd, Err: err}
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, &SpawnError{Command: cmd, Err: err}
	}

	outR, outW, err := pipe()
	if err != nil {
		return nil, &SpawnError{Command: cmd, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	errR, errW, err := pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, &SpawnError{Command: cmd, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	// O_NONBLOCK lives on the read ends' own file descriptions, so the
	// child's write ends stay blocking.
	for _, fd := range []int{outR, errR} {
		if err := unix.SetNonblock(fd, true); err != nil {
			closeAll(outR, outW, errR, errW)
			return nil, &SpawnError{Command: cmd, Err: fmt.Errorf("set nonblocking: %w", err)}
		}
	}

	// Descriptors created through the syscall package take ForkLock for
	// reading, so none can appear unmarked while the scan runs.
	syscall.ForkLock.Lock()
	closeInheritedOnExec()
	syscall.ForkLock.Unlock()

	pid, err := syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Dir:   cmd.Dir,
		Env:   cmd.environ(),
		Files: []uintptr{closedFD, uintptr(outW), uintptr(errW)},
		Sys:   &syscall.SysProcAttr{Setpgid: newGroup},
	})
	closeAll(outW, errW)
	if err != nil {
		closeAll(outR, errR)
		return nil, &SpawnError{Command: cmd, Err: err}
	}

	return &running{pid: pid, fds: [2]int{outR, errR}}, nil
}

// closeStream closes the read end for s. Safe to call more than once.
func (r *running) closeStream(s Stream) {
	if fd := r.fds[s]; fd >= 0 {
		_ = unix.Close(fd)
		r.fds[s] = -1
	}
}

// close releases every read end still open.
func (r *running) close() {
	r.closeStream(Stdout)
	r.closeStream(Stderr)
}

// wait blocks until the child exits or stops and classifies the status.
// It collects the status at most once.
func (r *running) wait() (Outcome, error) {
	if r.waited {
		return Outcome{}, errAlreadyWaited
	}
	r.waited = true

	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(r.pid, &ws, unix.WUNTRACED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("wait for pid %d: %w", r.pid, err)
		}
		return Classify(ws, wpid), nil
	}
}

func closeAll(fds ...int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}
