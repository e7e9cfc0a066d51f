package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const EventCatalogChanged = "catalog:changed"

const defaultReloadDelay = 250 * time.Millisecond

type Emitter func(eventName string, payload any)

// Watcher reloads the user palettes of a registry whenever palette files in its directory change.
// Bursts of file events collapse into a single reload.
type Watcher struct {
	mu       sync.Mutex
	registry *Registry
	dir      string
	delay    time.Duration
	logger   *slog.Logger
	emit     Emitter
	onReload func(err error)
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	done     chan struct{}
	stopped  chan struct{}
}

func NewWatcher(registry *Registry, dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		registry: registry,
		dir:      dir,
		delay:    defaultReloadDelay,
		logger:   logger,
	}
}

func (w *Watcher) SetEmitter(emitter Emitter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit = emitter
}

// SetOnReload registers a callback that runs after every reload with the reload error, if any.
func (w *Watcher) SetOnReload(listener func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = listener
}

func (w *Watcher) SetDelay(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	w.delay = delay
}

func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil
	}
	if w.dir == "" {
		return errors.New("palette directory is required")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create palette dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create palette watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch palette dir: %w", err)
	}

	w.watcher = watcher
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.loop(watcher, w.done, w.stopped)

	w.logger.Info("watching palette directory", "dir", w.dir)
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	watcher := w.watcher
	done := w.done
	stopped := w.stopped
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if watcher == nil {
		return
	}

	close(done)
	watcher.Close()
	<-stopped
}

func (w *Watcher) loop(watcher *fsnotify.Watcher, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !IsPaletteFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("palette watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.Reload)
}

// Reload re-reads the palette directory immediately.
func (w *Watcher) Reload() {
	err := w.registry.ReloadDir(w.dir)
	if err != nil {
		w.logger.Warn("palette reload reported errors", "dir", w.dir, "error", err)
	} else {
		w.logger.Info("reloaded user palettes", "dir", w.dir)
	}

	w.mu.Lock()
	emitter := w.emit
	listener := w.onReload
	w.mu.Unlock()

	if emitter != nil {
		emitter(EventCatalogChanged, w.registry.List())
	}
	if listener != nil {
		listener(err)
	}
}
