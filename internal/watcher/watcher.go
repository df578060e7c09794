// Package watcher keeps the index current by watching the project tree
// for file events and triggering debounced incremental reindex passes.
package watcher

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/codescout/internal/engine"
)

// DefaultDebounce batches bursts of file events (editor saves, branch
// switches) into one reindex pass.
const DefaultDebounce = 500 * time.Millisecond

// Watcher runs incremental reindexing in response to file changes.
type Watcher struct {
	engine   *engine.Engine
	debounce time.Duration
}

// New creates a Watcher. debounce <= 0 uses DefaultDebounce.
func New(e *engine.Engine, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{engine: e, debounce: debounce}
}

// Run watches the project root until ctx is cancelled. Directories are
// watched recursively; new subdirectories are added as they appear.
// Each quiet period after a burst of events triggers one incremental
// Index pass, which itself decides per file what actually changed.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	root := w.engine.Config.RootDir
	if err := addRecursive(fsw, root); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if skipPath(root, event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				if err := addRecursive(fsw, event.Name); err == nil {
					log.Printf("watching new path %s", event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)

		case <-timerCh:
			timer = nil
			timerCh = nil
			stats, err := w.engine.Index(ctx, nil)
			if err != nil {
				log.Printf("reindex after change failed: %v", err)
				continue
			}
			if stats.FilesProcessed > 0 || stats.FilesRemoved > 0 {
				log.Printf("reindexed: %d files changed, %d removed", stats.FilesProcessed, stats.FilesRemoved)
			}
		}
	}
}

// addRecursive watches path and every directory below it. Non-directory
// and hidden paths are ignored.
func addRecursive(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		_ = fsw.Add(p)
		return nil
	})
}

// skipPath filters events from hidden directories, including the index
// directory itself, so index writes never retrigger indexing.
func skipPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
