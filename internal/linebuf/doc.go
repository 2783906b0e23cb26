// Package linebuf reassembles complete lines from arbitrarily chunked input.
//
// A Buffer is fed raw bytes as they arrive (for example, chunks read from a
// subprocess pipe) and hands every complete line to a sink, prefixed by a
// fixed label. Bytes after the last newline are held until more data or a
// final Flush arrives:
//
//	lb := linebuf.New(func(line string) { fmt.Println(line) }, "[build] ")
//	lb.Write([]byte("compiling\nlink"))   // prints "[build] compiling"
//	lb.Write([]byte("ing\n"))              // prints "[build] linking"
//	lb.Flush()                             // nothing pending, no-op
//
// The newline byte is never part of a delivered line. A carriage return
// before it is preserved.
package linebuf
