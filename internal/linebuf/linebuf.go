package linebuf

import "bytes"

// Terminator is the byte that ends a line.
const Terminator = '\n'

// Sink receives one complete line, already prefixed.
type Sink func(line string)

// Buffer accumulates bytes for a single stream and emits complete lines.
// It is not safe for concurrent use.
type Buffer struct {
	sink    Sink
	prefix  string
	pending []byte
}

// New creates a line buffer delivering each line to sink, prefixed by prefix.
func New(sink Sink, prefix string) *Buffer {
	return &Buffer{sink: sink, prefix: prefix}
}

// Write appends p to the pending bytes and delivers every line completed by
// it. A trailing fragment without a terminator stays pending. Write never
// fails; it implements io.Writer so a Buffer can sit behind io.Copy.
func (b *Buffer) Write(p []byte) (int, error) {
	b.pending = append(b.pending, p...)
	if bytes.IndexByte(p, Terminator) < 0 {
		return len(p), nil
	}

	segments := bytes.Split(b.pending, []byte{Terminator})
	// Split always yields one segment past the last terminator: empty when
	// the buffer ended on a terminator, the partial line otherwise.
	last := len(segments) - 1
	for _, seg := range segments[:last] {
		b.sink(b.prefix + string(seg))
	}

	if len(segments[last]) == 0 {
		b.pending = b.pending[:0]
	} else {
		b.pending = append(b.pending[:0], segments[last]...)
	}
	return len(p), nil
}

// Flush delivers any pending partial line and clears it.
func (b *Buffer) Flush() {
	if len(b.pending) == 0 {
		return
	}
	line := b.prefix + string(b.pending)
	b.pending = b.pending[:0]
	b.sink(line)
}

// Pending returns the number of bytes held back waiting for a terminator.
func (b *Buffer) Pending() int {
	return len(b.pending)
}
