// Package watcher notifies watch mode when new trace files land.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a directory for freshly written trace files.
type Watcher struct {
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	extensions []string
	onError    func(error)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for file change events.
// Instrumented processes flush many .profraw files in a burst; one debounced
// event covers the whole batch.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithExtensions sets the file extensions to watch.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

// WithErrorHandler sets a callback for errors reported by the underlying
// filesystem watcher. Watching continues after the callback returns.
func WithErrorHandler(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a new file watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fsw,
		debounce:   500 * time.Millisecond,
		extensions: []string{".profraw"},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WatchDir adds a directory to the watch list. Only the directory itself is
// watched; instrumented binaries drop traces in their working directory, not
// in subtrees.
func (w *Watcher) WatchDir(root string) error {
	return w.watcher.Add(root)
}

// Events returns a channel that emits when relevant files change.
// The channel is debounced to avoid rapid successive triggers.
func (w *Watcher) Events(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		var timer *time.Timer
		var timerCh <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !isWriteEvent(event.Op) {
					continue
				}
				if !w.hasRelevantExtension(event.Name) {
					continue
				}

				// Debounce: reset timer on each event
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C

			case <-timerCh:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
				timerCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.handleError(err)
			}
		}
	}()

	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isWriteEvent(op fsnotify.Op) bool {
	return op&fsnotify.Write == fsnotify.Write ||
		op&fsnotify.Create == fsnotify.Create
}

func (w *Watcher) handleError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

func (w *Watcher) hasRelevantExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
