package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a configuration file and notifies typed handlers when
// the file changes. The file is re-read on every change so handlers never
// see stale data.
//
// The daemon uses it to hot-reload camera description files: control
// values are re-applied to running cameras while structural changes
// (resolution, format) wait for the next init.
type Watcher[T any] struct {
	path  string
	delay time.Duration
	load  func(path string) (T, error)
	fail  func(error)
	log   *slog.Logger

	mu    sync.RWMutex
	subs  map[int]func(T)
	subID int

	fw     *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce overrides the 1500ms settle window between the last file
// change and the reload.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.delay = d
	}
}

// WithErrorHandler installs a callback for failed reloads. Without one,
// load errors are only logged.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.fail = handler
	}
}

// NewConfigWatcher builds a watcher for path. The loader runs on every
// detected change and its result is fanned out to all subscribers.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher[T]{
		path:   path,
		delay:  1500 * time.Millisecond,
		load:   loader,
		subs:   make(map[int]func(T)),
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload subscribes a handler to config changes and returns a function
// that removes the subscription.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.subID
	w.subID++
	w.subs[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Start opens the fsnotify watch and launches the reload loop.
func (w *Watcher[T]) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw

	w.log.Info("Config watcher started", "path", w.path, "debounce", w.delay)
	go w.run()
	return nil
}

// Stop ends the watch. Pending debounced reloads are discarded.
func (w *Watcher[T]) Stop() error {
	w.cancel()
	if w.fw != nil {
		return w.fw.Close()
	}
	return nil
}

func (w *Watcher[T]) run() {
	debounce := time.NewTimer(w.delay)
	if !debounce.Stop() {
		<-debounce.C
	}
	armed := false

	for {
		select {
		case <-w.ctx.Done():
			debounce.Stop()
			w.log.Debug("Config watcher stopped")
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			// Write is the common case; create/rename/remove cover editors
			// that save by replacing the file.
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.log.Debug("Config file change detected", "op", ev.Op.String())

			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				// The old watch followed the orphaned inode. Re-add by path
				// so the replacement file stays watched.
				if err := w.fw.Add(w.path); err != nil {
					w.log.Warn("Failed to re-watch config file", "error", err)
				}
			}

			if armed && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(w.delay)
			armed = true

		case <-debounce.C:
			armed = false
			w.log.Info("Config file changed, loading and notifying handlers")
			w.reload()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Config watcher error", "error", err)
		}
	}
}

// reload reads the file once and hands the same snapshot to every
// subscriber. On load failure subscribers are not called.
func (w *Watcher[T]) reload() {
	cfg, err := w.load(w.path)
	if err != nil {
		w.log.Warn("Failed to load config", "error", err)
		if w.fail != nil {
			w.fail(err)
		}
		return
	}

	w.mu.RLock()
	notify := make([]func(T), 0, len(w.subs))
	for _, fn := range w.subs {
		notify = append(notify, fn)
	}
	w.mu.RUnlock()

	for _, fn := range notify {
		fn(cfg)
	}
}
