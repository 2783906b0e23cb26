//go:build unix && !linux

package process

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// maxScannedFD bounds the fallback scan when /dev/fd is unavailable.
const maxScannedFD = 1 << 16

// closeInheritedOnExec marks every descriptor from 3 up close-on-exec, so
// the only descriptors a child keeps are the ones ForkExec places at 0-2.
func closeInheritedOnExec() {
	if markDirCloseOnExec("/dev/fd") {
		return
	}
	limit := uint64(maxScannedFD)
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err == nil && uint64(rl.Cur) < limit {
		limit = uint64(rl.Cur)
	}
	for fd := 3; uint64(fd) < limit; fd++ {
		unix.CloseOnExec(fd)
	}
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
