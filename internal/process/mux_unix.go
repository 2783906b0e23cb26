//go:build unix

package process

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const defaultChunkSize = 4096

// drain delivers output from both streams until each has reached EOF.
// Chunks are passed to deliver in the order poll reports readiness; within a
// stream they arrive in the order the child wrote them. The slice passed to
// deliver is reused between calls.
func (r *running) drain(deliver func(Stream, []byte)) error {
	buf := make([]byte, r.chunkSize())
	pfds := make([]unix.PollFd, 0, len(r.fds))
	streams := make([]Stream, 0, len(r.fds))

	for {
		pfds, streams = pfds[:0], streams[:0]
		for s, fd := range r.fds {
			if fd < 0 {
				continue
			}
			pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
			streams = append(streams, Stream(s))
		}
		if len(pfds) == 0 {
			return nil
		}

		if _, err := unix.Poll(pfds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}

		for i, pfd := range pfds {
			if pfd.Revents == 0 {
				continue
			}
			if err := r.drainReady(streams[i], buf, deliver); err != nil {
				return err
			}
		}
	}
}

// drainReady reads s until it would block or hits EOF. EOF closes the
// stream and removes it from the watch set; no empty chunk is delivered.
func (r *running) drainReady(s Stream, buf []byte, deliver func(Stream, []byte)) error {
	for {
		n, err := unix.Read(r.fds[s], buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil
		case err != nil:
			return fmt.Errorf("read %s: %w", s, err)
		case n == 0:
			r.closeStream(s)
			return nil
		}
		deliver(s, buf[:n])
	}
}

// chunkSize uses the pipe's preferred I/O block size.
func (r *running) chunkSize() int {
	var st unix.Stat_t
	if err := unix.Fstat(r.fds[Stdout], &st); err != nil || st.Blksize <= 0 {
		return defaultChunkSize
	}
	return int(st.Blksize)
}
