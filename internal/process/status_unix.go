//go:build unix

package process

import "golang.org/x/sys/unix"

// Classify maps a raw wait status reported for pid to an Outcome.
func Classify(ws unix.WaitStatus, pid int) Outcome {
	o := Outcome{Status: uint32(ws), PID: pid}
	switch {
	case ws.Exited():
		o.Code = ws.ExitStatus()
		if o.Code == 0 {
			o.Kind = Success
		} else {
			o.Kind = NonZeroExit
		}
	case ws.Signaled():
		o.Kind = Signaled
		o.Signal = ws.Signal()
		o.CoreDump = ws.CoreDump()
	case ws.Stopped():
		o.Kind = Stopped
		o.Signal = ws.StopSignal()
	default:
		o.Kind = Unknown
	}
	return o
}
