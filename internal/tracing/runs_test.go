package tracing

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/smazurov/cmdutils/internal/events"
)

func newRecordingTracer(t *testing.T) (*RunTracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewRunTracer(tp), rec
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestRecordFinishedSuccess(t *testing.T) {
	rt, rec := newRecordingTracer(t)
	end := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rt.now = func() time.Time { return end }

	rt.RecordFinished(events.RunFinishedEvent{
		RunID:       "run-1",
		PID:         42,
		Command:     "make",
		Outcome:     "success",
		Duration:    2 * time.Second,
		StdoutBytes: 100,
	})

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "process.run" {
		t.Errorf("name = %q", span.Name())
	}
	if !span.StartTime().Equal(end.Add(-2*time.Second)) || !span.EndTime().Equal(end) {
		t.Errorf("span covers %v..%v", span.StartTime(), span.EndTime())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v", span.Status())
	}

	a := attrs(span)
	if a["cmdutils.run_id"].AsString() != "run-1" || a["process.pid"].AsInt64() != 42 ||
		a["process.exit.code"].AsInt64() != 0 || a["cmdutils.stdout_bytes"].AsInt64() != 100 {
		t.Errorf("attributes = %v", a)
	}
}

func TestRecordFinishedFailures(t *testing.T) {
	tests := []struct {
		name string
		ev   events.RunFinishedEvent
		key  attribute.Key
	}{
		{"non-zero exit", events.RunFinishedEvent{RunID: "a", PID: 1, Outcome: "non_zero_exit", ExitCode: 3, Error: "command exited with 3"}, "process.exit.code"},
		{"signaled", events.RunFinishedEvent{RunID: "b", PID: 1, Outcome: "signaled", Signal: 9, Error: "killed"}, "cmdutils.signal"},
		{"spawn error", events.RunFinishedEvent{RunID: "c", Outcome: "spawn_error", Error: "spawn nope: not found"}, "cmdutils.outcome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, rec := newRecordingTracer(t)
			rt.RecordFinished(tt.ev)

			spans := rec.Ended()
			if len(spans) != 1 {
				t.Fatalf("got %d spans", len(spans))
			}
			span := spans[0]
			if span.Status().Code != codes.Error || span.Status().Description != tt.ev.Outcome {
				t.Errorf("status = %+v", span.Status())
			}
			if _, ok := attrs(span)[tt.key]; !ok {
				t.Errorf("missing attribute %s", tt.key)
			}
			if len(span.Events()) != 1 || span.Events()[0].Name != "exception" {
				t.Errorf("events = %+v", span.Events())
			}
			if tt.ev.PID == 0 {
				if _, ok := attrs(span)["process.pid"]; ok {
					t.Error("spawn failure should have no pid")
				}
			}
		})
	}
}

func TestSubscribeAndAwait(t *testing.T) {
	rt, rec := newRecordingTracer(t)
	bus := events.New()
	defer bus.Close()
	unsub := rt.Subscribe(bus)
	defer unsub()

	bus.Publish(events.RunFinishedEvent{RunID: "run-2", Outcome: "success"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rt.Await(ctx, "run-2"); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if len(rec.Ended()) != 1 {
		t.Errorf("got %d spans, want 1", len(rec.Ended()))
	}
}
