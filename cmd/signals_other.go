//go:build !unix

package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"
)

type forwarder struct {
	sigs     chan os.Signal
	received chan struct{}
	once     sync.Once
}

func forwardSignals(*slog.Logger, time.Duration) *forwarder {
	f := &forwarder{sigs: make(chan os.Signal, 1), received: make(chan struct{})}
	signal.Notify(f.sigs, os.Interrupt)
	go func() {
		if _, ok := <-f.sigs; ok {
			f.once.Do(func() { close(f.received) })
		}
	}()
	return f
}

func (f *forwarder) attach(int) {}

func (f *forwarder) detach() {}

func (f *forwarder) Received() <-chan struct{} { return f.received }

func (f *forwarder) stop() { signal.Stop(f.sigs) }
