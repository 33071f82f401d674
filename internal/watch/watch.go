// Package watch reloads the JSON stores when their files are edited by
// another process.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an atomic write produces.
const DefaultDebounce = 100 * time.Millisecond

// Reloader is a store that can re-read its file.
type Reloader interface {
	Reload() error
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func() error

// Reload calls f.
func (f ReloaderFunc) Reload() error { return f() }

// Watcher watches one directory and calls the Reloader registered for a
// file name after that file changed.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	targets map[string]Reloader
	timers  map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is reloaded.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New starts watching dir, creating it when missing. The directory is
// watched rather than the files so that atomic renames are seen.
func New(dir string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		targets:  make(map[string]Reloader),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	w.fsw = fsw
	return w, nil
}

// Watch registers r for the file name inside the watched directory.
func (w *Watcher) Watch(name string, r Reloader) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.targets[name] = r
}

// Run dispatches events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(filepath.Base(event.Name))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := w.targets[name]
	if !ok {
		return
	}
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, name)
		w.mu.Unlock()

		w.logger.Debug("file changed, reloading", "file", name)
		if err := r.Reload(); err != nil {
			w.logger.Warn("reload failed", "file", name, "error", err)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}
