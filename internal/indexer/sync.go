package indexer

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"image-viewer/internal/logging"
	"image-viewer/internal/mediatypes"
	"image-viewer/internal/metrics"
	"image-viewer/internal/watcher"
)

// Apply applies a batch of filesystem events in order. Creations become
// Add, writes become Update, and removals and renames become Remove.
// Events for hidden paths, for paths outside the root and for files without
// an image extension are dropped first. The removal of a directory drops
// every record below it. Failures are logged and never stop the batch.
func (idx *Index) Apply(batch []watcher.Event) {
	for _, ev := range batch {
		idx.applyEvent(ev)
	}
}

func (idx *Index) applyEvent(ev watcher.Event) {
	key, _, err := idx.resolve(ev.Path)
	if err != nil || isHiddenKey(key) {
		return
	}

	if !mediatypes.IsImageExtension(key) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			if n := idx.removeTree(key); n > 0 {
				logging.Debug("Index: directory %s went away, dropped %d images", key, n)
			}
		}
		return
	}

	switch ev.Op {
	case watcher.OpCreate:
		err = idx.Add(ev.Path)
		if errors.Is(err, ErrNotImage) {
			// e.g. a directory named like an image, or a text file saved as .png
			logging.Debug("Index: ignoring %s: %v", key, err)
			return
		}
	case watcher.OpWrite:
		err = idx.Update(ev.Path)
	case watcher.OpRemove, watcher.OpRename:
		idx.Remove(ev.Path)
	}

	if err != nil {
		metrics.IndexEventErrors.Inc()
		if errors.Is(err, os.ErrNotExist) {
			// Removed before we got to it; the removal event follows.
			logging.Debug("Index: %s vanished before %s could be applied", key, ev.Op)
			return
		}
		logging.Warn("Index: failed to apply %s for %s: %v", ev.Op, key, err)
	}
}

// isHiddenKey reports whether any element of the key starts with a dot.
func isHiddenKey(key string) bool {
	for _, part := range strings.Split(key, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// RequestResync schedules a reconciliation on the goroutine running Run.
// It returns false when one is already pending.
func (idx *Index) RequestResync() bool {
	select {
	case idx.resync <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run is the single writer of the index once the initial scan is done. It
// applies event batches as they arrive, reconciles every resyncInterval
// (0 disables the timer) and on RequestResync. It returns nil when events is
// closed and the context error when ctx is cancelled.
func (idx *Index) Run(ctx context.Context, events <-chan []watcher.Event, resyncInterval time.Duration) error {
	var tick <-chan time.Time
	if resyncInterval > 0 {
		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	logging.Debug("Index: applying filesystem events (resync every %v)", resyncInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case batch, ok := <-events:
			if !ok {
				logging.Debug("Index: event feed closed")
				return nil
			}
			idx.Apply(batch)

		case <-tick:
			idx.reconcile(ctx)

		case <-idx.resync:
			idx.reconcile(ctx)
		}
	}
}

func (idx *Index) reconcile(ctx context.Context) {
	if _, err := idx.Reconcile(ctx); err != nil && ctx.Err() == nil {
		logging.Error("Index: reconcile failed: %v", err)
	}
}
