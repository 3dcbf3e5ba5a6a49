// Package watcher monitors tool directories for changes and triggers a
// reload. Rapid editor saves are debounced so one reload covers a burst.
package watcher

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"toolsmith/internal/discovery"
)

// ReloadFunc is invoked after a debounced change settles. Paths is the set
// of tool files that changed since the previous reload.
type ReloadFunc func(ctx context.Context, paths []string)

// Stats tracks watcher activity for debugging.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Reloads       int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches one or more tool directories and calls a reload function
// when tool files settle after editing.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	log         *zap.Logger
	dirs        []string
	reload      ReloadFunc
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// New creates a watcher over the given tool directories.
func New(dirs []string, reload ReloadFunc, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Watcher{
		watcher:     fsw,
		log:         log,
		dirs:        append([]string(nil), dirs...),
		reload:      reload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
// Missing directories are skipped, not fatal: they may be created later.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			w.log.Debug("skipping missing tool directory", zap.String("dir", dir))
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("failed to watch tool directory",
				zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.log.Info("watching tool directory", zap.String("dir", dir))
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. Calling it
// before Start still releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		w.log.Error("error closing watcher", zap.Error(err))
	}
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedDirs returns the directories currently being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.watcher.WatchList()
}

// GetStats returns a snapshot of watcher activity.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.flushSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !discovery.IsToolFile(event.Name) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.mu.Lock()
		w.stats.FilesCreated++
		w.mu.Unlock()
	case event.Op&fsnotify.Write != 0:
		w.mu.Lock()
		w.stats.FilesModified++
		w.mu.Unlock()
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.mu.Lock()
		w.stats.FilesDeleted++
		w.mu.Unlock()
	default:
		return
	}

	w.log.Debug("tool file event",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// flushSettled collects events older than the debounce window and triggers
// one reload covering all of them.
func (w *Watcher) flushSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	if len(settled) > 0 {
		w.stats.Reloads++
	}
	w.mu.Unlock()

	if len(settled) == 0 || w.reload == nil {
		return
	}

	w.log.Info("tool files changed, reloading", zap.Int("files", len(settled)))
	w.reload(ctx, settled)
}
