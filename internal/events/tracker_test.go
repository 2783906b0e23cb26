package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTracker_AwaitBeforeDone(t *testing.T) {
	tr := NewTracker()
	errc := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		errc <- tr.Await(ctx, "run-1")
	}()

	time.Sleep(10 * time.Millisecond)
	tr.Done("run-1")
	if err := <-errc; err != nil {
		t.Errorf("Await() = %v", err)
	}
}

func TestTracker_AwaitAfterDone(t *testing.T) {
	tr := NewTracker()
	tr.Done("run-1")
	tr.Done("run-1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.Await(ctx, "run-1"); err != nil {
		t.Errorf("Await() = %v", err)
	}
	if len(tr.done) != 0 {
		t.Errorf("run not forgotten after Await: %v", tr.done)
	}
}

func TestTracker_AwaitTimeout(t *testing.T) {
	tr := NewTracker()
	tr.Done("other")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tr.Await(ctx, "run-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await() = %v, want deadline exceeded", err)
	}
}
