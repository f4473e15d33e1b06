package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"image-viewer/internal/logging"
	"image-viewer/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is emitted.
	Debounce time.Duration
}

// Watcher turns fsnotify events for a directory tree into debounced batches.
// Directories created after start are watched as they appear.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	rootDir   string

	closeOnce sync.Once
	closeErr  error
	stopped   chan struct{}
}

// New registers every non-hidden directory under rootDir. Directories that
// cannot be read or watched are logged and skipped.
func New(rootDir string, opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(opts.Debounce),
		rootDir:   rootDir,
		stopped:   make(chan struct{}),
	}

	if err := fsWatcher.Add(rootDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	w.addTree(rootDir, false)

	logging.Debug("Watcher: watching %d directories under %s", w.WatchedDirectories(), rootDir)
	return w, nil
}

// Events returns the channel of debounced batches. It is closed after Close.
func (w *Watcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// WatchedDirectories returns the number of directories currently registered.
func (w *Watcher) WatchedDirectories() int {
	return len(w.fsWatcher.WatchList())
}

// Start processes fsnotify events until the watcher is closed. Call this in
// a goroutine.
func (w *Watcher) Start() {
	defer close(w.stopped)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.Warn("Watcher: event queue overflowed, changes were lost until the next resync")
			} else {
				logging.Error("Watcher error: %v", err)
			}
			metrics.WatcherErrors.Inc()
		}
	}
}

// Close stops watching and releases the OS watch descriptors. It is safe to
// call more than once, and it never blocks on a consumer that stopped reading.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsWatcher.Close()
		w.debouncer.Close()
		metrics.WatchedDirectories.Set(0)
		logging.Debug("Watcher: closed")
	})
	return w.closeErr
}

// Stopped is closed when Start has returned.
func (w *Watcher) Stopped() <-chan struct{} {
	return w.stopped
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if isHidden(w.rootDir, event.Name) {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		if w.handleCreatedDirectory(event.Name) {
			return
		}
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		// Chmod carries no content change.
		return
	}

	w.debouncer.Add(event.Name, op)

	if op == OpRemove || op == OpRename {
		metrics.WatchedDirectories.Set(float64(w.WatchedDirectories()))
	}
}

// handleCreatedDirectory watches a newly created directory and reports true
// if the path was one. Files written before the watch was in place would
// otherwise be missed, so everything already inside is emitted as created.
func (w *Watcher) handleCreatedDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}

	w.addTree(path, true)
	logging.Debug("Watcher: added new directory %s", path)
	return true
}

// addTree watches every non-hidden directory below root. With emitFiles set,
// the regular files found are queued as creations.
func (w *Watcher) addTree(root string, emitFiles bool) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("Watcher: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == w.rootDir {
				return nil
			}
			if addErr := w.fsWatcher.Add(path); addErr != nil {
				if errors.Is(addErr, fsnotify.ErrClosed) {
					return filepath.SkipAll
				}
				logging.Warn("Watcher: failed to watch %s: %v", path, addErr)
				metrics.WatcherErrors.Inc()
				return filepath.SkipDir
			}
			return nil
		}

		if emitFiles && d.Type().IsRegular() {
			w.debouncer.Add(path, OpCreate)
		}
		return nil
	})
	if err != nil {
		logging.Warn("Watcher: failed to walk %s: %v", root, err)
		metrics.WatcherErrors.Inc()
	}

	metrics.WatchedDirectories.Set(float64(w.WatchedDirectories()))
}

// isHidden reports whether any path element below root starts with a dot.
func isHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
