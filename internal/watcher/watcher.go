package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports files in a directory once they stop changing
type Watcher struct {
	dir      string
	match    func(name string) bool
	onFile   func(ctx context.Context, path string)
	debounce time.Duration
	log      *zap.Logger
}

// New creates a watcher for dir. match filters base names; onFile runs on
// the watch goroutine, one file at a time.
func New(dir string, match func(name string) bool, onFile func(ctx context.Context, path string)) *Watcher {
	return &Watcher{
		dir:      dir,
		match:    match,
		onFile:   onFile,
		debounce: 500 * time.Millisecond,
		log:      zap.NewNop(),
	}
}

// WithDebounce sets how long a file must stay quiet before it is reported
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger
func (w *Watcher) WithLogger(l *zap.Logger) *Watcher {
	w.log = l
	return w
}

// Watch reports matching files already in the directory, then every file
// created or written later. It blocks until the context is cancelled or
// the underlying watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watching directory", zap.String("dir", w.dir))

	// path -> time of the last event seen for it
	pending := make(map[string]time.Time)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && w.match(e.Name()) {
			pending[filepath.Join(w.dir, e.Name())] = time.Time{}
		}
	}

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.match(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				pending[event.Name] = time.Now()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			for _, path := range w.settled(pending) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				delete(pending, path)
				if info, err := os.Stat(path); err != nil || info.IsDir() {
					continue
				}
				w.log.Debug("file settled", zap.String("path", path))
				w.onFile(ctx, path)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// settled returns the pending paths quiet for at least the debounce, sorted
func (w *Watcher) settled(pending map[string]time.Time) []string {
	var ready []string
	for path, last := range pending {
		if time.Since(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	slices.Sort(ready)
	return ready
}
