package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the search-enabled flag in sync with the settings file.
type Watcher struct {
	path     string
	fallback bool
	logger   *slog.Logger
	enabled  atomic.Bool
}

// NewWatcher loads path once. fallback applies while the file is missing.
func NewWatcher(path string, fallback bool, logger *slog.Logger) *Watcher {
	w := &Watcher{path: path, fallback: fallback, logger: logger}
	w.reload()
	return w
}

// Enabled reports the current flag. Safe for concurrent use.
func (w *Watcher) Enabled() bool { return w.enabled.Load() }

// Start watches the settings directory and reloads on change. Blocks until
// ctx is cancelled. The directory is watched rather than the file so atomic
// renames are seen.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating settings watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching settings dir: %w", err)
	}

	name := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("settings: watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	s, err := LoadOr(w.path, w.fallback)
	if err != nil {
		// Partial write; keep the previous value.
		w.logger.Warn("settings: reload failed", "path", w.path, "err", err)
		return
	}
	if old := w.enabled.Swap(s.SearchEnabled); old != s.SearchEnabled {
		w.logger.Info("search enablement changed", "enabled", s.SearchEnabled)
	}
}
