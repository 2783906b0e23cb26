package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// A nil bus drops the event, so callers need not check for one.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case RunStartedEvent:
		event.Publish(b.dispatcher, e)
	case OutputEvent:
		event.Publish(b.dispatcher, e)
	case RunFinishedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e RunFinishedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(RunStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OutputEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RunFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel bridges a typed subscription to a channel. Events are
// dropped when ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- T) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// Close stops the dispatcher and its handler goroutines.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
