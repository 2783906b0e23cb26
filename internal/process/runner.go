package process

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/cmdutils/internal/events"
	"github.com/smazurov/cmdutils/internal/linebuf"
	"github.com/smazurov/cmdutils/internal/logging"
)

// ChunkFunc receives output as it is read. data is only valid for the
// duration of the call. Returning a non-nil error stops delivery.
type ChunkFunc func(s Stream, data []byte) error

// LineFunc receives one complete line, without its terminator. Returning a
// non-nil error stops delivery.
type LineFunc func(s Stream, line string) error

// Sink is the logging capability used by LoggerExec. *slog.Logger
// satisfies it.
type Sink interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

// LogOptions configures LoggerExec.
type LogOptions struct {
	Logger       Sink
	StdoutLevel  slog.Level
	StderrLevel  slog.Level
	StdoutPrefix string
	StderrPrefix string
}

var errNilLogger = errors.New("log options: logger is nil")

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for the runner's own diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithEventBus publishes run lifecycle and output events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithOnStart registers fn to be called with the child's pid right after it
// is spawned, before any output is delivered.
func WithOnStart(fn func(pid int)) Option {
	return func(r *Runner) {
		r.onStart = fn
	}
}

// WithProcessGroup starts the child in a new process group whose id is the
// child's pid. Terminal signals aimed at the caller's group then no longer
// reach the child; callers that want them forwarded signal -pid.
func WithProcessGroup() Option {
	return func(r *Runner) {
		r.newGroup = true
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// Runner executes one Command once.
type Runner struct {
	cmd      Command
	logger   *slog.Logger
	bus      *events.Bus
	onStart  func(pid int)
	runID    string
	newGroup bool

	used atomic.Bool
	pid  atomic.Int64
}

// New returns a Runner for cmd. cmd is copied; later changes by the caller
// have no effect.
func New(cmd Command, opts ...Option) *Runner {
	r := &Runner{
		cmd:   cmd.clone(),
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("runner")
	}
	return r
}

// Command returns a copy of the command the runner executes.
func (r *Runner) Command() Command {
	return r.cmd.clone()
}

// RunID identifies this invocation in logs and events.
func (r *Runner) RunID() string {
	return r.runID
}

// PID returns the child's pid while it is running, or 0.
func (r *Runner) PID() int {
	return int(r.pid.Load())
}

// EachOutput runs the command and calls fn for every chunk of output.
// It returns nil on Success, a *SpawnError if the child could not be
// created, and a *StatusError for any other outcome. An error returned by fn
// other than ErrStopOutput is joined to the result.
func (r *Runner) EachOutput(fn ChunkFunc) error {
	_, err := r.invoke(fn, nil)
	return err
}

// EachLine runs the command and calls fn for every complete line. Trailing
// partial lines are delivered once both streams are closed, stdout first.
func (r *Runner) EachLine(fn LineFunc) error {
	return r.eachLine("", "", fn)
}

// LoggerExec runs the command and logs each output line through
// opts.Logger at the level configured for its stream, prefixed by the
// stream's prefix.
func (r *Runner) LoggerExec(opts LogOptions) error {
	if opts.Logger == nil {
		return errNilLogger
	}
	ctx := context.Background()
	levels := [2]slog.Level{Stdout: opts.StdoutLevel, Stderr: opts.StderrLevel}
	return r.eachLine(opts.StdoutPrefix, opts.StderrPrefix, func(s Stream, line string) error {
		opts.Logger.Log(ctx, levels[s], line)
		return nil
	})
}

// Run runs the command, discarding its output, and returns the outcome.
func (r *Runner) Run() (Outcome, error) {
	return r.invoke(func(Stream, []byte) error { return nil }, nil)
}

func (r *Runner) eachLine(stdoutPrefix, stderrPrefix string, fn LineFunc) error {
	var lineErr error
	var bufs [2]*linebuf.Buffer
	for s, prefix := range [2]string{Stdout: stdoutPrefix, Stderr: stderrPrefix} {
		stream := Stream(s)
		bufs[s] = linebuf.New(func(line string) {
			if lineErr == nil {
				lineErr = fn(stream, line)
			}
		}, prefix)
	}

	_, err := r.invoke(func(s Stream, data []byte) error {
		_, _ = bufs[s].Write(data)
		return lineErr
	}, func() error {
		bufs[Stdout].Flush()
		bufs[Stderr].Flush()
		return lineErr
	})
	return err
}

// invoke spawns the child, delivers its output to fn until both streams
// close or fn fails, calls flush, then reaps the child. After fn fails the
// remaining output is read and discarded; the child is never killed.
func (r *Runner) invoke(fn ChunkFunc, flush func() error) (Outcome, error) {
	if !r.used.CompareAndSwap(false, true) {
		return Outcome{}, ErrAlreadyRun
	}

	started := time.Now()
	logger := r.logger.With("run_id", r.runID, "command", r.cmd.String())

	proc, err := start(r.cmd, r.newGroup)
	if err != nil {
		logger.Error("Failed to start process", "error", err)
		r.finished(0, Outcome{}, err, time.Since(started), [2]int64{})
		return Outcome{}, err
	}
	defer proc.close()

	r.pid.Store(int64(proc.pid))
	defer r.pid.Store(0)

	logger = logger.With("pid", proc.pid)
	logger.Debug("Process started")
	r.bus.Publish(events.RunStartedEvent{
		RunID:     r.runID,
		PID:       proc.pid,
		Command:   r.cmd.String(),
		Timestamp: started,
	})
	if r.onStart != nil {
		r.onStart(proc.pid)
	}

	var fnErr error
	var read [2]int64
	drainErr := proc.drain(func(s Stream, data []byte) {
		read[s] += int64(len(data))
		r.bus.Publish(events.OutputEvent{RunID: r.runID, Stream: s.String(), Bytes: len(data)})
		if fnErr != nil {
			return
		}
		if fnErr = fn(s, data); fnErr != nil {
			logger.Debug("Output consumer stopped, discarding remaining output", "error", fnErr)
		}
	})
	if drainErr != nil {
		// Without the read ends the child sees EPIPE and exits on its own.
		logger.Warn("Reading process output failed", "error", drainErr)
		proc.close()
	}
	if fnErr == nil && flush != nil {
		fnErr = flush()
	}

	outcome, waitErr := proc.wait()
	var statusErr error
	if waitErr == nil {
		statusErr = outcome.Err(r.cmd)
	}
	if errors.Is(fnErr, ErrStopOutput) {
		fnErr = nil
	}
	err = joinErrors(statusErr, fnErr, drainErr, waitErr)

	duration := time.Since(started)
	if outcome.Kind == Success && err == nil {
		logger.Debug("Process exited", "outcome", outcome.Kind, "duration", duration)
	} else {
		logger.Info("Process failed", "outcome", outcome.Kind, "duration", duration, "error", err)
	}
	r.finished(proc.pid, outcome, err, duration, read)
	return outcome, err
}

func (r *Runner) finished(pid int, outcome Outcome, err error, duration time.Duration, read [2]int64) {
	ev := events.RunFinishedEvent{
		RunID:       r.runID,
		PID:         pid,
		Command:     r.cmd.String(),
		Outcome:     outcome.Kind.String(),
		ExitCode:    outcome.Code,
		Signal:      int(outcome.Signal),
		CoreDump:    outcome.CoreDump,
		Duration:    duration,
		StdoutBytes: read[Stdout],
		StderrBytes: read[Stderr],
	}
	var spawnErr *SpawnError
	if errors.As(err, &spawnErr) {
		ev.Outcome = "spawn_error"
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.bus.Publish(ev)
}

// EachOutput runs cmd with a fresh Runner. See Runner.EachOutput.
func EachOutput(cmd Command, fn ChunkFunc, opts ...Option) error {
	return New(cmd, opts...).EachOutput(fn)
}

// EachLine runs cmd with a fresh Runner. See Runner.EachLine.
func EachLine(cmd Command, fn LineFunc, opts ...Option) error {
	return New(cmd, opts...).EachLine(fn)
}

// LoggerExec runs cmd with a fresh Runner. See Runner.LoggerExec.
func LoggerExec(cmd Command, logOpts LogOptions, opts ...Option) error {
	return New(cmd, opts...).LoggerExec(logOpts)
}
