// Package process runs external commands while observing their output as it
// is produced, and classifies how they terminated.
//
// A Runner spawns a single child with stdin closed and stdout/stderr each
// connected to a dedicated pipe. Both pipes are drained from one goroutine
// with poll(2), so a child writing heavily to one stream can never stall
// behind a blocking read on the other. Once both streams reach EOF the child
// is reaped exactly once and its wait status is turned into an Outcome:
//
//   - Success: exited with code 0
//   - NonZeroExit: exited with any other code
//   - Signaled: killed by a signal, possibly with a core dump
//   - Stopped: stopped by a job-control signal
//   - Unknown: anything else
//
// Every outcome other than Success is returned as a *StatusError, which
// matches ErrNonZeroExit, ErrSignaled, ErrStopped or ErrUnknownStatus with
// errors.Is. Failing to create the child returns a *SpawnError instead.
//
// Output can be consumed as raw chunks (EachOutput), as complete lines
// (EachLine), or routed into a leveled logger (LoggerExec):
//
//	err := process.LoggerExec(process.Command{Shell: "make build"}, process.LogOptions{
//	    Logger:       logging.GetLogger("build"),
//	    StdoutLevel:  slog.LevelInfo,
//	    StderrLevel:  slog.LevelWarn,
//	    StderrPrefix: "stderr: ",
//	})
//	if errors.Is(err, process.ErrNonZeroExit) {
//	    ...
//	}
//
// The package never kills the child. When a callback stops consuming early,
// the remaining output is drained and discarded so the child cannot block on
// a full pipe, and the runner still waits for it to exit on its own.
package process
