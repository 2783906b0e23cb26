package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type testJobs struct {
	Command string `toml:"command"`
	Retries int    `toml:"retries"`
}

func loadTestJobs(path string) (testJobs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testJobs{}, err
	}
	var cfg testJobs
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startWatcher writes initial to a fresh file and starts a watcher on it.
func startWatcher(t *testing.T, initial string, loader func(string) (testJobs, error), opts ...WatcherOption[testJobs]) (*Watcher[testJobs], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.toml")
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	opts = append([]WatcherOption[testJobs]{WithDebounce[testJobs](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loader, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	// Give the watcher a moment to register.
	time.Sleep(50 * time.Millisecond)
	return w, path
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	var zero T
	return zero
}

func TestConfigWatcher_Reload(t *testing.T) {
	received := make(chan testJobs, 1)
	w, path := startWatcher(t, "command = \"true\"\n", loadTestJobs)
	w.OnReload(func(cfg testJobs) { received <- cfg })

	if err := os.WriteFile(path, []byte("command = \"make\"\nretries = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := waitFor(t, received)
	if cfg.Command != "make" || cfg.Retries != 2 {
		t.Errorf("got %+v, want command=make retries=2", cfg)
	}
}

func TestConfigWatcher_AtomicReplace(t *testing.T) {
	received := make(chan testJobs, 1)
	w, path := startWatcher(t, "command = \"true\"\n", loadTestJobs)
	w.OnReload(func(cfg testJobs) { received <- cfg })

	for _, command := range []string{"first", "second"} {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, []byte("command = \""+command+"\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
		if cfg := waitFor(t, received); cfg.Command != command {
			t.Errorf("got %q, want %q", cfg.Command, command)
		}
	}
}

func TestConfigWatcher_IgnoresSiblings(t *testing.T) {
	var loads atomic.Int32
	_, path := startWatcher(t, "command = \"true\"\n", func(p string) (testJobs, error) {
		loads.Add(1)
		return loadTestJobs(p)
	})

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(sibling, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := loads.Load(); got != 0 {
		t.Errorf("loader called %d times for an unrelated file", got)
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	var loads atomic.Int32
	received := make(chan testJobs, 10)
	w, path := startWatcher(t, "retries = 0\n", func(p string) (testJobs, error) {
		loads.Add(1)
		return loadTestJobs(p)
	}, WithDebounce[testJobs](150*time.Millisecond))
	w.OnReload(func(cfg testJobs) { received <- cfg })

	for i := 1; i <= 5; i++ {
		if err := os.WriteFile(path, []byte("retries = "+strconv.Itoa(i)+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cfg := waitFor(t, received)
	if cfg.Retries != 5 {
		t.Errorf("got retries=%d, want the last write (5)", cfg.Retries)
	}
	time.Sleep(300 * time.Millisecond)
	if got := loads.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestConfigWatcher_UnsubscribeAndMultipleHandlers(t *testing.T) {
	var first, second atomic.Int32
	done := make(chan struct{}, 2)
	w, path := startWatcher(t, "retries = 1\n", loadTestJobs)

	w.OnReload(func(cfg testJobs) {
		first.Store(int32(cfg.Retries))
		done <- struct{}{}
	})
	unsub := w.OnReload(func(cfg testJobs) {
		second.Store(int32(cfg.Retries))
		done <- struct{}{}
	})

	if err := os.WriteFile(path, []byte("retries = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, done)
	waitFor(t, done)
	if first.Load() != 2 || second.Load() != 2 {
		t.Fatalf("handlers saw %d and %d, want 2 and 2", first.Load(), second.Load())
	}

	unsub()
	if err := os.WriteFile(path, []byte("retries = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, done)
	time.Sleep(100 * time.Millisecond)
	if first.Load() != 3 {
		t.Errorf("remaining handler saw %d, want 3", first.Load())
	}
	if second.Load() != 2 {
		t.Errorf("unsubscribed handler saw %d, want 2", second.Load())
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errs := make(chan error, 1)
	w, path := startWatcher(t, "retries = 1\n", loadTestJobs, WithErrorHandler[testJobs](func(err error) {
		errs <- err
	}))
	w.OnReload(func(testJobs) { t.Error("handler called for invalid config") })

	if err := os.WriteFile(path, []byte("retries = [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := waitFor(t, errs); err == nil {
		t.Error("expected a load error")
	}
}

func TestConfigWatcher_StopTwice(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "jobs.toml"), loadTestJobs, newTestLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestConfigWatcher_StartMissingDirectory(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "missing", "jobs.toml"), loadTestJobs, newTestLogger())
	if err := w.Start(); err == nil {
		_ = w.Stop()
		t.Fatal("Start should fail when the directory does not exist")
	}
}
