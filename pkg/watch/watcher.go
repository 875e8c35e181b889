// Package watch reloads the navigator when the browsed directories change
// on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/picseq/internal/logger"
)

// DefaultDebounce is how long the watcher waits for further events before
// acting on a burst.
const DefaultDebounce = 100 * time.Millisecond

// Target receives the outcome of filesystem changes.
type Target interface {
	// Reload rescans listings after files were added, removed or renamed.
	Reload(ctx context.Context) error

	// Invalidate drops cached content of a modified file.
	Invalidate(path string)
}

// Config configures a Watcher.
type Config struct {
	Debounce time.Duration

	// Recursive also watches every non-hidden sub-directory.
	Recursive bool
}

// Watcher batches fsnotify events and forwards them to a Target.
type Watcher struct {
	fsw       *fsnotify.Watcher
	target    Target
	debounce  time.Duration
	recursive bool

	fire chan struct{}

	mu         sync.Mutex
	timer      *time.Timer
	modified   map[string]struct{}
	structural bool
	closed     bool
}

// New creates a watcher with nothing watched yet.
func New(target Target, cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:       fsw,
		target:    target,
		debounce:  cfg.Debounce,
		recursive: cfg.Recursive,
		fire:      make(chan struct{}, 1),
		modified:  make(map[string]struct{}),
	}, nil
}

// Watch adds dir, and its sub-directories when recursive.
func (w *Watcher) Watch(dir string) error {
	if !w.recursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// WatchList returns the watched directories.
func (w *Watcher) WatchList() []string {
	return w.fsw.WatchList()
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Filesystem watcher error", logger.Err(err))
		case <-w.fire:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	logger.Debug("Filesystem event", logger.KeyEvent, event.Op.String(), logger.Path(event.Name))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.structural = true
		w.modified[event.Name] = struct{}{}
	case event.Has(fsnotify.Write):
		w.modified[event.Name] = struct{}{}
	default:
		return
	}

	if event.Has(fsnotify.Create) && w.recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.Watch(event.Name)
		}
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	modified := w.modified
	structural := w.structural
	w.modified = make(map[string]struct{})
	w.structural = false
	w.mu.Unlock()

	for path := range modified {
		w.target.Invalidate(path)
	}
	if !structural {
		return
	}
	if err := w.target.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Reload after filesystem change failed", logger.Err(err))
		return
	}
	logger.Debug("Reloaded after filesystem change", logger.Count(len(modified)))
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close stops watching. A running Run returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}
