package events

import (
	"context"
	"sync"
)

// Tracker lets callers wait for an asynchronous subscriber to finish
// handling a run. The subscriber calls Done once per run ID; Await may be
// called before or after that.
type Tracker struct {
	mu   sync.Mutex
	done map[string]chan struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{done: make(map[string]chan struct{})}
}

// Done marks runID as handled. Repeated calls are harmless.
func (t *Tracker) Done(runID string) {
	ch := t.chanFor(runID)
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Await blocks until runID has been marked done or ctx ends. The run is
// forgotten afterwards.
func (t *Tracker) Await(ctx context.Context, runID string) error {
	ch := t.chanFor(runID)
	defer func() {
		t.mu.Lock()
		delete(t.done, runID)
		t.mu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) chanFor(runID string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.done[runID]
	if !ok {
		ch = make(chan struct{})
		t.done[runID] = ch
	}
	return ch
}
