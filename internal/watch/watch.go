// Package watch surfaces trainer progress while a run is live. The external
// trainer only communicates through the filesystem, so the harness watches
// the run's output directory and logs whenever the checkpoint tag advances.
// Watching is best-effort: a platform without inotify support degrades to a
// silent run, never a failed one.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pclab/shaperun/internal/checkpoint"
	"github.com/pclab/shaperun/internal/ctxlog"
)

// debounce suppresses duplicate events from editors and partial writes.
const debounce = 2 * time.Second

// Watcher follows one output directory for the lifetime of an invocation.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// Start begins watching dir. The returned Watcher must be closed when the
// invocation finishes.
func Start(ctx context.Context, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go w.loop(ctx, dir)
	return w, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.once.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

func (w *Watcher) loop(ctx context.Context, dir string) {
	logger := ctxlog.FromContext(ctx).With("output_dir", dir)
	tracker := checkpoint.New(dir)
	var lastSeen time.Time

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != checkpoint.TagFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastSeen) < debounce {
				continue
			}
			lastSeen = time.Now()
			if last, err := tracker.Last(); err == nil && last != "" {
				logger.Info("Checkpoint advanced.", "checkpoint", filepath.Base(last))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Debug("Watcher error.", "error", err)
		}
	}
}
