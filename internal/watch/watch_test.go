package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recorder) fn(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func start(t *testing.T, paths []string, rec *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Files(ctx, paths, 50*time.Millisecond, quiet, rec.fn) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Files: %v", err)
		}
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_WriteTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")
	_ = os.WriteFile(target, []byte("a: 1\n"), 0o644)

	rec := &recorder{}
	start(t, []string{target}, rec)

	_ = os.WriteFile(target, []byte("a: 2\n"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return rec.count() == 1 },
		"expected one callback after write")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) > 0 && (len(rec.calls[0]) != 1 || filepath.Base(rec.calls[0][0]) != "config.yaml") {
		t.Errorf("changed = %v", rec.calls[0])
	}
}

func TestWatcher_BurstDebounced(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "manifest.json")

	rec := &recorder{}
	start(t, []string{target}, rec)

	for i := range 5 {
		_ = os.WriteFile(target, []byte{byte('0' + i)}, 0o644)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return rec.count() >= 1 },
		"expected a callback for the burst")
	time.Sleep(200 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("callbacks = %d, want 1", n)
	}
}

func TestWatcher_RenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "manifest.json")

	rec := &recorder{}
	start(t, []string{target}, rec)

	tmp := filepath.Join(dir, ".tmp-manifest")
	_ = os.WriteFile(tmp, []byte("{}"), 0o644)
	_ = os.Rename(tmp, target)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return rec.count() == 1 },
		"rename into place not seen")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")

	rec := &recorder{}
	start(t, []string{target}, rec)

	_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("callbacks = %d, want 0", n)
	}
}

func TestWatcher_CallbackErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")

	rec := &recorder{err: errors.New("boom")}
	start(t, []string{target}, rec)

	_ = os.WriteFile(target, []byte("1"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return rec.count() == 1 },
		"first change not seen")

	_ = os.WriteFile(target, []byte("2"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return rec.count() == 2 },
		"watcher stopped after callback error")
}

func TestWatcher_MissingDir(t *testing.T) {
	err := Files(context.Background(), []string{filepath.Join(t.TempDir(), "nope", "x.yaml")}, 0, quiet, (&recorder{}).fn)
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
