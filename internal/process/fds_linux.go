package process

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// closeInheritedOnExec marks every descriptor from 3 up close-on-exec, so
// the only descriptors a child keeps are the ones ForkExec places at 0-2.
func closeInheritedOnExec() {
	if err := unix.CloseRange(3, ^uint(0), unix.CLOSE_RANGE_CLOEXEC); err == nil {
		return
	}
	// close_range(2) needs Linux 5.11 for CLOSE_RANGE_CLOEXEC.
	markDirCloseOnExec("/proc/self/fd")
}

func markDirCloseOnExec(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if fd, err := strconv.Atoi(e.Name()); err == nil && fd > 2 {
			unix.CloseOnExec(fd)
		}
	}
	return true
}
