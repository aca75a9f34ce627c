package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly loaded config after the file on disk
// changed. Invalid files never reach handlers.
type ReloadFunc func(cfg *Config)

// Watcher reloads the config file when it changes, so a running chat
// session can pick up new agent tuning without restarting. Editor save
// bursts are debounced.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	done     chan struct{}

	mu       sync.Mutex
	handlers []ReloadFunc
}

const reloadDebounce = 300 * time.Millisecond

// NewWatcher prepares a watcher for the config file at path. Start begins
// delivery.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		fsw:      fsw,
		debounce: reloadDebounce,
	}, nil
}

// OnReload registers a handler for validated reloads.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Start begins watching the config file.
func (w *Watcher) Start() error {
	if err := w.fsw.Add(w.path); err != nil {
		return err
	}
	w.done = make(chan struct{})
	go w.watch()
	slog.Debug("watching config for changes", "path", w.path)
	return nil
}

// Stop halts delivery and releases the underlying file watcher.
func (w *Watcher) Stop() {
	if w.done != nil {
		close(w.done)
	}
	w.fsw.Close()
}

func (w *Watcher) watch() {
	var pending *time.Timer

	for {
		select {
		case <-w.done:
			if pending != nil {
				pending.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config changed but did not load, keeping current settings",
			"path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	handlers := make([]ReloadFunc, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(cfg)
	}
	slog.Info("config reloaded", "path", w.path)
}
