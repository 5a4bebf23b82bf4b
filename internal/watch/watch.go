// Package watch runs a callback whenever one of a set of files changes on
// disk. Serve mode uses it to reload the store when a new manifest lands;
// watch mode uses it to regenerate when the config file is edited.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor or an atomic
// rename produces into one callback.
const DefaultDebounce = 200 * time.Millisecond

// Func handles a settled change. changed holds the cleaned paths that fired
// since the previous call, in first-seen order.
type Func func(ctx context.Context, changed []string) error

// Files watches paths until ctx is cancelled and calls fn once per debounced
// burst of changes. The parent directories are watched rather than the files
// themselves so replace-by-rename writes and files created later are seen.
// A callback error is logged and watching continues.
func Files(ctx context.Context, paths []string, debounce time.Duration, logger *slog.Logger, fn Func) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	targets := make(map[string]bool, len(paths))
	var dirs []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Any("paths", paths))

	var timer *time.Timer
	var fire <-chan time.Time
	var pending []string

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			changed := pending
			pending = nil
			fire = nil
			logger.Debug("watcher: change settled", slog.Any("paths", changed))
			if err := fn(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("watcher: callback failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if !targets[name] || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !slices.Contains(pending, name) {
				pending = append(pending, name)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
