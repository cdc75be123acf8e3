package worktree

import (
	"fmt"
	"os"
	"path/filepath"

	"argos/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the managed worktree root and reports checkout
// directories that disappear, so branch records can be marked missing.
type Watcher struct {
	removed chan string
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching the controller's root and its project
// subdirectories. Removed worktree directories are reported on Removed().
func NewWatcher(c *Controller) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		removed: make(chan string, 64),
		watcher: fsw,
	}

	if err := fsw.Add(c.Root()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch worktree root: %w", err)
	}

	// Watch existing per-project directories; worktree checkouts are their
	// immediate children
	entries, err := os.ReadDir(c.Root())
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				if err := fsw.Add(filepath.Join(c.Root(), entry.Name())); err != nil {
					logging.Logger.Debug("Failed to watch project directory",
						"dir", entry.Name(), "error", err)
				}
			}
		}
	}

	go w.run()
	return w, nil
}

// Removed returns the channel of removed worktree paths
func (w *Watcher) Removed() <-chan string {
	return w.removed
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				close(w.removed)
				return
			}
			switch {
			case event.Has(fsnotify.Create):
				// New project directory under the root: watch it so its
				// checkouts are covered too
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						logging.Logger.Debug("Failed to watch new directory",
							"dir", event.Name, "error", err)
					}
				}
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				select {
				case w.removed <- event.Name:
				default:
					// Reader is behind; dropping is fine, Refresh reconciles
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				close(w.removed)
				return
			}
			logging.Logger.Warn("Worktree watcher error", "error", err)
		}
	}
}
