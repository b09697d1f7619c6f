package config

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/sectionflow/internal/logging"
)

// ErrWatcherClosed is returned when a closed watcher is used.
var ErrWatcherClosed = errors.New("watcher is closed")

// ReloadHandler receives the result of reloading the watched file. Exactly
// one of cfg and err is non-nil.
type ReloadHandler func(cfg *Config, err error)

// Watcher reloads a configuration file when it changes.
//
// It watches the file's directory rather than the file, so editors that
// replace the file by renaming still trigger a reload. Bursts of events
// within the debounce window produce a single reload.
type Watcher struct {
	path     string
	loader   *Loader
	handler  ReloadHandler
	debounce time.Duration
	logger   *logging.Logger

	fsw *fsnotify.Watcher

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}

	events  atomic.Int64
	reloads atomic.Int64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLoader sets the loader used for reloads.
func WithLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.loader = l
		}
	}
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher starts watching path. handler runs on the watcher's goroutine.
func NewWatcher(path string, handler ReloadHandler, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		loader:   NewLoader(),
		handler:  handler,
		debounce: 100 * time.Millisecond,
		logger:   logging.NullLogger,
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("config-watcher")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops the watcher. A pending debounced reload is dropped.
func (w *Watcher) Close() error {
	err := ErrWatcherClosed
	w.closeOnce.Do(func() {
		close(w.closeCh)
		<-w.done
		err = w.fsw.Close()
	})
	return err
}

// WatcherStats contains watcher counters.
type WatcherStats struct {
	Events  int64
	Reloads int64
}

// Stats returns watcher counters.
func (w *Watcher) Stats() WatcherStats {
	return WatcherStats{Events: w.events.Load(), Reloads: w.reloads.Load()}
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.events.Add(1)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

// relevant reports whether ev may have changed the watched file's content.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	w.reloads.Add(1)
	cfg, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Warn("reload of %s failed: %v", w.path, err)
		w.handler(nil, err)
		return
	}
	w.logger.Info("reloaded %s", w.path)
	w.handler(cfg, nil)
}
