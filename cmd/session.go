package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/smazurov/cmdutils/internal/events"
	"github.com/smazurov/cmdutils/internal/logging"
	"github.com/smazurov/cmdutils/internal/metrics"
	"github.com/smazurov/cmdutils/internal/metrics/exporters"
	natsbus "github.com/smazurov/cmdutils/internal/nats"
	"github.com/smazurov/cmdutils/internal/process"
	"github.com/smazurov/cmdutils/internal/tracing"
	"github.com/smazurov/cmdutils/internal/version"
)

const (
	awaitTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// session holds what a command needs across one or more runs: the event
// bus and its subscribers, and signal forwarding.
type session struct {
	opts      *Options
	logger    *slog.Logger
	bus       *events.Bus
	recorder  *metrics.Recorder
	server    *http.Server
	publisher *natsbus.Publisher
	tracer    *tracing.RunTracer
	shutdown  tracing.Shutdown
	signals   *forwarder
	unsubs    []func()
}

func newSession(opts *Options) (*session, error) {
	s := &session{
		opts:   opts,
		logger: logging.GetLogger("cli"),
	}

	if opts.MetricsFile != "" || opts.MetricsListen != "" {
		s.recorder = metrics.New()
	}

	if opts.MetricsListen != "" {
		ln, err := net.Listen("tcp", opts.MetricsListen)
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", exporters.HTTPHandler(s.recorder.Registry()))
		s.server = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics server failed", "addr", ln.Addr().String(), "error", err)
			}
		}()
		s.logger.Info("Serving metrics", "addr", ln.Addr().String())
	}

	s.bus = events.New()
	if s.recorder != nil {
		s.unsubs = append(s.unsubs, s.recorder.Subscribe(s.bus))
	}
	if opts.NatsURL != "" {
		s.publisher = natsbus.NewPublisher(opts.NatsURL, opts.NatsSubject, logging.GetLogger("nats"))
		// Offline mode is reported by Connect; the run goes ahead regardless.
		_ = s.publisher.Connect()
		s.unsubs = append(s.unsubs, s.publisher.Subscribe(s.bus))
	}
	if opts.TracingEndpoint != "" || tracing.EnabledFromEnv() {
		info := version.Get()
		shutdown, err := tracing.Setup(context.Background(), &tracing.Config{
			Enabled:  true,
			Endpoint: opts.TracingEndpoint,
			Insecure: opts.TracingInsecure,
			Version:  info.Version,
			Commit:   info.GitCommit,
		})
		if err != nil {
			s.close()
			return nil, err
		}
		s.shutdown = shutdown
		s.tracer = tracing.NewRunTracer(otel.GetTracerProvider())
		s.unsubs = append(s.unsubs, s.tracer.Subscribe(s.bus))
	}

	s.signals = forwardSignals(logging.GetLogger("signals"), opts.KillTimeout)
	return s, nil
}

// execute runs fn against a fresh runner for cmd, with the child in its own
// process group and SIGINT/SIGTERM/SIGHUP forwarded to that group.
func (s *session) execute(cmd process.Command, fn func(*process.Runner) error) error {
	r := process.New(cmd,
		process.WithEventBus(s.bus),
		process.WithProcessGroup(),
		process.WithOnStart(s.signals.attach),
	)
	err := fn(r)
	s.signals.detach()
	s.exportMetrics(r.RunID())
	s.awaitSubscribers(r.RunID())
	return err
}

// awaitSubscribers waits until the run's outcome has reached NATS and the
// tracer, so nothing is lost when cmdutils exits right after.
func (s *session) awaitSubscribers(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	if s.publisher != nil {
		if err := s.publisher.Await(ctx, runID); err != nil {
			s.logger.Warn("Run outcome not published in time", "run_id", runID, "error", err)
		}
	}
	if s.tracer != nil {
		if err := s.tracer.Await(ctx, runID); err != nil {
			s.logger.Warn("Run span not recorded in time", "run_id", runID, "error", err)
		}
	}
}

// exportMetrics writes the metrics textfile once the run has been recorded.
func (s *session) exportMetrics(runID string) {
	if s.recorder == nil || s.opts.MetricsFile == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	if err := s.recorder.Await(ctx, runID); err != nil {
		s.logger.Warn("Run not recorded in time, metrics may be stale", "run_id", runID, "error", err)
	}
	if err := exporters.WriteTextfile(s.opts.MetricsFile, s.recorder.Registry()); err != nil {
		s.logger.Warn("Failed to write metrics", "path", s.opts.MetricsFile, "error", err)
	}
}

func (s *session) close() {
	if s.signals != nil {
		s.signals.stop()
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.shutdown(ctx); err != nil {
			s.logger.Warn("Tracing shutdown failed", "error", err)
		}
	}
	if err := s.bus.Close(); err != nil {
		s.logger.Debug("Event bus close failed", "error", err)
	}
}
