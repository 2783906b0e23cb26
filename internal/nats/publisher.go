package nats

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/cmdutils/internal/events"
)

const flushTimeout = 2 * time.Second

// Publisher mirrors run lifecycle events from the event bus onto NATS.
// It degrades gracefully: while disconnected, events are dropped.
type Publisher struct {
	url       string
	prefix    string
	host      string
	conn      *nats.Conn
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	published *events.Tracker
}

// NewPublisher creates a Publisher for the server at url. An empty prefix
// means DefaultSubjectPrefix.
func NewPublisher(url, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	host, _ := os.Hostname()

	return &Publisher{
		url:       url,
		prefix:    prefix,
		host:      host,
		logger:    logger.With("component", "nats-publisher"),
		published: events.NewTracker(),
	}
}

// Connect establishes the connection. On failure the publisher stays
// usable in offline mode and the error is returned for reporting.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []nats.Option{
		nats.Name("cmdutils"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.setConnected(false)
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			} else {
				p.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.setConnected(true)
			p.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(p.url, opts...)
	if err != nil {
		p.logger.Warn("Failed to connect to NATS, run events will not be published", "url", p.url, "error", err)
		return err
	}

	p.conn = conn
	p.connected = true
	p.logger.Debug("Connected to NATS", "url", p.url)
	return nil
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// Subscribe starts publishing events from bus. The returned function
// unsubscribes.
func (p *Publisher) Subscribe(bus *events.Bus) func() {
	unsubStarted := bus.Subscribe(p.PublishStarted)
	unsubFinished := bus.Subscribe(p.PublishFinished)
	return func() {
		unsubStarted()
		unsubFinished()
	}
}

// PublishStarted publishes a run start. No-op if not connected.
func (p *Publisher) PublishStarted(ev events.RunStartedEvent) {
	data, err := startedMessage(ev, p.host).Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal run start", "error", err)
		return
	}
	p.publish(SubjectRunStarted(p.prefix, ev.RunID), data)
}

// PublishFinished publishes a run outcome. No-op if not connected. The run
// counts as handled for Await either way.
func (p *Publisher) PublishFinished(ev events.RunFinishedEvent) {
	defer p.published.Done(ev.RunID)

	data, err := finishedMessage(ev, p.host, time.Now()).Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal run outcome", "error", err)
		return
	}
	p.publish(SubjectRunFinished(p.prefix, ev.RunID), data)
}

func (p *Publisher) publish(subject string, data []byte) {
	p.mu.RLock()
	conn := p.conn
	connected := p.connected
	p.mu.RUnlock()

	if conn == nil || !connected {
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish", "subject", subject, "error", err)
	}
}

// Await blocks until the outcome of runID has been handed to NATS or ctx
// ends.
func (p *Publisher) Await(ctx context.Context, runID string) error {
	return p.published.Await(ctx, runID)
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return
	}
	if p.connected {
		if err := p.conn.FlushTimeout(flushTimeout); err != nil {
			p.logger.Warn("Failed to flush NATS messages", "error", err)
		}
	}
	p.conn.Close()
	p.conn = nil
	p.connected = false
}
