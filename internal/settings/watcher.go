package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"desktop-thumbnailer/internal/logging"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher re-imports a thumbnailers YAML file into a Store whenever the file
// changes on disk. Editors often replace files via rename, so the parent
// directory is watched rather than the file itself.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
}

// NewWatcher creates a watcher for path.
func NewWatcher(store *Store, path string) *Watcher {
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
	}
}

// Run watches until ctx is done. Import errors are logged and do not stop
// the watcher; the previous contents of the store stay in effect.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Debug("Watching %s for thumbnailer changes", w.path)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if err := ImportYAML(w.store, w.path); err != nil {
				logging.Warn("Failed to re-import %s: %v", w.path, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
		}
	}
}
