package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher delivers a signal whenever the session set may have changed
// (descriptor created, rewritten or removed). Rapid bursts are coalesced.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	changed chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher over the sessions directory.
// Call Start() in a goroutine, then read from Changed().
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:     dir,
		watcher: fw,
		changed: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Changed returns the channel signalling catalog changes.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Start begins watching. Blocks until Stop() is called.
func (w *Watcher) Start() {
	if err := w.watcher.Add(w.dir); err != nil {
		catLog.Warn("catalog_watch_add_failed",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()))
		return
	}

	// Debounce timer: coalesce rapid file events
	var debounce *time.Timer
	var mu sync.Mutex

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case w.changed <- struct{}{}:
				default:
				}
			})
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			catLog.Warn("catalog_watch_error", slog.String("error", err.Error()))
		}
	}
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
}
