package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smazurov/cmdutils/internal/events"
)

const (
	instrumentationName = "github.com/smazurov/cmdutils/internal/tracing"
	spanName            = "process.run"
)

// RunTracer records a span for every finished run.
type RunTracer struct {
	tracer trace.Tracer
	traced *events.Tracker
	now    func() time.Time
}

// NewRunTracer creates a RunTracer using tp, typically
// otel.GetTracerProvider().
func NewRunTracer(tp trace.TracerProvider) *RunTracer {
	return &RunTracer{
		tracer: tp.Tracer(instrumentationName),
		traced: events.NewTracker(),
		now:    time.Now,
	}
}

// Subscribe starts tracing runs finished on bus. The returned function
// unsubscribes.
func (t *RunTracer) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(t.RecordFinished)
}

// RecordFinished emits the span for one run. The span ends now and starts
// ev.Duration earlier.
func (t *RunTracer) RecordFinished(ev events.RunFinishedEvent) {
	defer t.traced.Done(ev.RunID)

	end := t.now()
	_, span := t.tracer.Start(context.Background(), spanName,
		trace.WithTimestamp(end.Add(-ev.Duration)),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cmdutils.run_id", ev.RunID),
			attribute.String("process.command_line", ev.Command),
			attribute.String("cmdutils.outcome", ev.Outcome),
			attribute.Int64("cmdutils.stdout_bytes", ev.StdoutBytes),
			attribute.Int64("cmdutils.stderr_bytes", ev.StderrBytes),
		),
	)

	if ev.PID != 0 {
		span.SetAttributes(attribute.Int("process.pid", ev.PID))
	}
	switch ev.Outcome {
	case "success", "non_zero_exit":
		span.SetAttributes(attribute.Int("process.exit.code", ev.ExitCode))
	case "signaled", "stopped":
		span.SetAttributes(
			attribute.Int("cmdutils.signal", ev.Signal),
			attribute.Bool("cmdutils.core_dump", ev.CoreDump),
		)
	}

	if ev.Outcome == "success" && ev.Error == "" {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, ev.Outcome)
		if ev.Error != "" {
			span.AddEvent("exception", trace.WithAttributes(
				attribute.String("exception.message", ev.Error),
			))
		}
	}
	span.End(trace.WithTimestamp(end))
}

// Await blocks until the span for runID has been ended or ctx ends.
func (t *RunTracer) Await(ctx context.Context, runID string) error {
	return t.traced.Await(ctx, runID)
}
