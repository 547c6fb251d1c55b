package rule

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a YAML rule file and reloads the store when it changes.
// Reload failures (malformed YAML, validation errors, cycles) keep the
// previous rule set.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given rule file. The parent directory
// is watched so editors that replace the file (rename + create) still
// trigger a reload.
func NewWatcher(store *Store, path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Watcher{
		store:    store,
		path:     path,
		debounce: debounce,
		watcher:  fw,
		logger:   slog.Default().With("component", "policy.rulewatcher"),
	}, nil
}

// Watch blocks, reloading the store on file changes, until the context is
// cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()

	w.logger.Info("rule file watcher started", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: editors emit bursts of events per save.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			if err := ApplyFile(w.store, w.path); err != nil {
				w.logger.Error("rule reload failed, keeping previous rule set",
					"path", w.path,
					"error", err,
				)
				continue
			}
			w.logger.Info("rules reloaded", "path", w.path, "store_version", w.store.Version())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("rule file watcher error", "error", err)
		}
	}
}
