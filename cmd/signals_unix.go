//go:build unix

package cmd

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// forwarder relays termination signals received by cmdutils to the process
// group of the running child. It also remembers that a signal arrived, so
// long-running commands know to stop once the child is gone.
//
// If the group is still attached killTimeout after the first forwarded
// signal, it is sent SIGKILL. A zero killTimeout never escalates.
type forwarder struct {
	logger      *slog.Logger
	killTimeout time.Duration
	pid         atomic.Int64
	kill        *time.Timer
	sigs        chan os.Signal
	done        chan struct{}
	received    chan struct{}
	once        sync.Once
	stopOnce    sync.Once
}

func forwardSignals(logger *slog.Logger, killTimeout time.Duration) *forwarder {
	f := &forwarder{
		logger:      logger,
		killTimeout: killTimeout,
		sigs:        make(chan os.Signal, 4),
		done:        make(chan struct{}),
		received:    make(chan struct{}),
	}
	signal.Notify(f.sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go f.loop()
	return f
}

// attach directs forwarded signals to the group led by pid.
func (f *forwarder) attach(pid int) {
	f.pid.Store(int64(pid))
}

func (f *forwarder) detach() {
	f.pid.Store(0)
}

// Received is closed after the first signal.
func (f *forwarder) Received() <-chan struct{} {
	return f.received
}

func (f *forwarder) stop() {
	f.stopOnce.Do(func() {
		signal.Stop(f.sigs)
		close(f.done)
	})
}

// escalate arms the SIGKILL timer for the group led by pid. Only the loop
// goroutine touches f.kill.
func (f *forwarder) escalate(pid int) {
	if f.killTimeout <= 0 || f.kill != nil {
		return
	}
	f.kill = time.AfterFunc(f.killTimeout, func() {
		if int(f.pid.Load()) != pid {
			return
		}
		f.logger.Warn("Process group did not exit in time, killing", "pgid", pid, "timeout", f.killTimeout)
		if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			f.logger.Error("Failed to kill process group", "pgid", pid, "error", err)
		}
	})
}

func (f *forwarder) loop() {
	for {
		select {
		case <-f.done:
			return
		case sig := <-f.sigs:
			f.once.Do(func() { close(f.received) })

			pid := int(f.pid.Load())
			if pid == 0 {
				f.logger.Info("Received signal while idle", "signal", sig.String())
				continue
			}
			sysSig, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			f.logger.Info("Forwarding signal", "signal", sig.String(), "pgid", pid)
			if err := unix.Kill(-pid, sysSig); err != nil {
				f.logger.Warn("Failed to forward signal", "signal", sig.String(), "pgid", pid, "error", err)
			}
			f.escalate(pid)
		}
	}
}
