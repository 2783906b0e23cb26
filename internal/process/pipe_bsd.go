//go:build unix && !linux

package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// pipe returns a close-on-exec pipe as (read, write) descriptors. Without
// pipe2 the descriptors are marked under ForkLock so a concurrent fork
// cannot inherit them.
func pipe() (int, int, error) {
	var p [2]int
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	if err := unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(p[0])
	unix.CloseOnExec(p[1])
	return p[0], p[1], nil
}
