// Package metrics records Prometheus metrics for command runs.
//
// A Recorder listens on the event bus, so it sees every run published by a
// process.Runner configured with the same bus. Metrics live in the
// Recorder's own registry and are exported either over HTTP or as a
// node_exporter textfile (see package exporters).
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/cmdutils/internal/events"
)

const namespace = "cmdutils"

// Recorder turns run events into metrics.
type Recorder struct {
	registry *prometheus.Registry

	started       prometheus.Counter
	runs          *prometheus.CounterVec
	outputBytes   *prometheus.CounterVec
	duration      prometheus.Histogram
	lastExitCode  prometheus.Gauge
	lastSuccess   prometheus.Gauge
	lastTimestamp prometheus.Gauge

	recorded *events.Tracker
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Commands successfully spawned",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome",
		}, []string{"outcome"}),
		outputBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes read from child output streams",
		}, []string{"stream"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time from spawn to status collection",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		lastExitCode: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_exit_code",
			Help:      "Exit code of the most recent run, 128+signal when killed",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the most recent run succeeded, 0 otherwise",
		}),
		lastTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished",
		}),
		recorded: events.NewTracker(),
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Subscribe starts recording events from bus. The returned function
// unsubscribes.
func (r *Recorder) Subscribe(bus *events.Bus) func() {
	unsubStarted := bus.Subscribe(func(events.RunStartedEvent) {
		r.started.Inc()
	})
	unsubFinished := bus.Subscribe(r.RecordFinished)
	return func() {
		unsubStarted()
		unsubFinished()
	}
}

// RecordFinished records one finished run.
func (r *Recorder) RecordFinished(ev events.RunFinishedEvent) {
	r.runs.WithLabelValues(ev.Outcome).Inc()
	r.outputBytes.WithLabelValues("stdout").Add(float64(ev.StdoutBytes))
	r.outputBytes.WithLabelValues("stderr").Add(float64(ev.StderrBytes))
	r.duration.Observe(ev.Duration.Seconds())
	r.lastExitCode.Set(float64(ExitCode(ev)))
	if ev.Outcome == "success" && ev.Error == "" {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
	r.lastTimestamp.Set(float64(time.Now().Unix()))

	r.recorded.Done(ev.RunID)
}

// Await blocks until the run with runID has been recorded or ctx ends.
func (r *Recorder) Await(ctx context.Context, runID string) error {
	return r.recorded.Await(ctx, runID)
}

// ExitCode maps a finished run to a shell-style exit code: the code itself
// for exits, 128+signal for signaled or stopped children, 127 when the
// command could not be spawned, and 1 otherwise.
func ExitCode(ev events.RunFinishedEvent) int {
	switch ev.Outcome {
	case "success", "non_zero_exit":
		return ev.ExitCode
	case "signaled", "stopped":
		return 128 + ev.Signal
	case "spawn_error":
		return 127
	default:
		return 1
	}
}
