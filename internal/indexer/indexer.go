package indexer

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"image-viewer/internal/filesystem"
	"image-viewer/internal/logging"
	"image-viewer/internal/mediatypes"
	"image-viewer/internal/memory"
	"image-viewer/internal/metrics"
	"image-viewer/internal/workers"
)

var (
	// ErrNotFound is returned for paths that are not in the index.
	ErrNotFound = errors.New("image not found in index")

	// ErrNotImage is returned by Add when the file content is not a
	// supported image.
	ErrNotImage = errors.New("not a supported image")

	// ErrOutsideRoot is returned for paths that resolve outside the root.
	ErrOutsideRoot = errors.New("path is outside the image root")
)

// maxScanWorkers caps the scan pool regardless of core count.
const maxScanWorkers = 16

// Options configures an Index.
type Options struct {
	// Workers is the number of scan workers (0 = sized from CPU count).
	Workers int
	// Memory, when set, pauses scan workers under memory pressure.
	Memory *memory.Monitor
}

// Index is the in-memory catalogue of images under a root directory.
//
// Mutations are expected from a single goroutine (see Run). Queries may be
// issued concurrently from any number of goroutines and always observe a
// fully applied state.
type Index struct {
	root    string
	workers int
	mem     *memory.Monitor

	mu      sync.RWMutex
	records map[string]ImageRecord
	// order holds the keys of records sorted with before.
	order []string

	stateMu          sync.Mutex
	startTime        time.Time
	ready            bool
	scanning         bool
	lastScan         time.Time
	lastScanDuration time.Duration
	scanErr          error
	lastReconcile    time.Time

	resync chan struct{}
}

// New creates an empty index rooted at root. Call Scan to populate it.
func New(root string, opts Options) (*Index, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving image root %s: %w", root, err)
	}

	info, err := filesystem.StatWithRetry(absRoot, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("image root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image root %s is not a directory", absRoot)
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = workers.ForIO(maxScanWorkers)
	}

	return &Index{
		root:      absRoot,
		workers:   numWorkers,
		mem:       opts.Memory,
		records:   make(map[string]ImageRecord),
		startTime: time.Now(),
		resync:    make(chan struct{}, 1),
	}, nil
}

// Root returns the absolute root directory.
func (idx *Index) Root() string {
	return idx.root
}

// resolve maps an absolute path, or a path relative to the root, to its
// slash-separated index key and absolute filesystem path.
func (idx *Index) resolve(p string) (key, abs string, err error) {
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Join(idx.root, filepath.FromSlash(p))
	}

	rel, err := filepath.Rel(idx.root, abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return rel, abs, nil
}

// normalizeKey cleans a key supplied by a caller such as an HTTP handler.
func normalizeKey(relPath string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(relPath, "\\", "/")), "/")
}

// inspect stats and sniffs a file without touching the index. It returns
// ErrNotImage for readable files that are not images, and the underlying
// error when the file cannot be read.
func (idx *Index) inspect(p string) (ImageRecord, error) {
	key, abs, err := idx.resolve(p)
	if err != nil {
		return ImageRecord{}, err
	}

	info, err := filesystem.StatWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil {
		return ImageRecord{}, err
	}
	if !info.Mode().IsRegular() {
		return ImageRecord{}, fmt.Errorf("%w: %s is not a regular file", ErrNotImage, key)
	}

	format, err := mediatypes.Sniff(abs)
	if err != nil {
		return ImageRecord{}, err
	}
	if format == mediatypes.FormatUnknown {
		return ImageRecord{}, fmt.Errorf("%w: %s", ErrNotImage, key)
	}

	return newRecord(key, abs, info, format), nil
}

// Add classifies, stats and inserts the file at p, replacing any record with
// the same key. Calling it again with no change on disk leaves the index
// unchanged. Non-image files return ErrNotImage and are not inserted.
func (idx *Index) Add(p string) error {
	rec, err := idx.inspect(p)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.putLocked(rec)
	idx.mu.Unlock()

	metrics.IndexMutationsTotal.WithLabelValues("add").Inc()
	logging.Debug("Index: added %s (%s)", rec.RelativePath, rec.Category)
	return nil
}

// Remove deletes the record for p if present. It never fails.
func (idx *Index) Remove(p string) {
	key, _, err := idx.resolve(p)
	if err != nil {
		return
	}

	idx.mu.Lock()
	removed := idx.deleteLocked(key)
	idx.mu.Unlock()

	if removed {
		metrics.IndexMutationsTotal.WithLabelValues("remove").Inc()
		logging.Debug("Index: removed %s", key)
	}
}

// Update re-reads the file at p after an in-place modification.
//
// If the file can no longer be read the prior record is kept and the error
// is returned; the deletion, if that is what happened, arrives as its own
// event or is caught by reconciliation. If the file is readable but no longer
// an image its record is removed. Otherwise the record is replaced with
// freshly derived category and timestamps.
func (idx *Index) Update(p string) error {
	rec, err := idx.inspect(p)
	if errors.Is(err, ErrNotImage) {
		idx.Remove(p)
		return nil
	}
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.putLocked(rec)
	idx.mu.Unlock()

	metrics.IndexMutationsTotal.WithLabelValues("update").Inc()
	logging.Debug("Index: updated %s", rec.RelativePath)
	return nil
}

// removeTree drops every record below the directory key dir.
func (idx *Index) removeTree(dir string) int {
	prefix := dir + "/"

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var doomed []string
	for key := range idx.records {
		if strings.HasPrefix(key, prefix) {
			doomed = append(doomed, key)
		}
	}
	for _, key := range doomed {
		idx.deleteLocked(key)
	}
	if len(doomed) > 0 {
		metrics.IndexMutationsTotal.WithLabelValues("remove").Add(float64(len(doomed)))
	}
	return len(doomed)
}

// position returns where rec sits, or would sit, in idx.order.
func (idx *Index) position(rec ImageRecord) int {
	return sort.Search(len(idx.order), func(i int) bool {
		return !before(idx.records[idx.order[i]], rec)
	})
}

// putLocked inserts or replaces rec. Caller must hold mu for writing.
func (idx *Index) putLocked(rec ImageRecord) {
	idx.deleteLocked(rec.RelativePath)

	i := idx.position(rec)
	idx.order = append(idx.order, "")
	copy(idx.order[i+1:], idx.order[i:])
	idx.order[i] = rec.RelativePath
	idx.records[rec.RelativePath] = rec
}

// deleteLocked removes key and reports whether it was present. Caller must
// hold mu for writing.
func (idx *Index) deleteLocked(key string) bool {
	old, ok := idx.records[key]
	if !ok {
		return false
	}

	i := idx.position(old)
	if i < len(idx.order) && idx.order[i] == key {
		idx.order = append(idx.order[:i], idx.order[i+1:]...)
	} else {
		// Not reachable while order and records agree; rebuild rather than
		// leave a dangling key.
		logging.Warn("Index: order out of sync for %s, rebuilding", key)
		delete(idx.records, key)
		idx.rebuildOrderLocked()
		return true
	}
	delete(idx.records, key)
	return true
}

func (idx *Index) rebuildOrderLocked() {
	idx.order = idx.order[:0]
	for key := range idx.records {
		idx.order = append(idx.order, key)
	}
	sort.Slice(idx.order, func(i, j int) bool {
		return before(idx.records[idx.order[i]], idx.records[idx.order[j]])
	})
}

// replaceAll swaps in a complete set of records.
func (idx *Index) replaceAll(records map[string]ImageRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = records
	idx.order = make([]string, 0, len(records))
	idx.rebuildOrderLocked()
}

// Get returns the record with the given relative path.
func (idx *Index) Get(relPath string) (ImageRecord, error) {
	key := normalizeKey(relPath)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.records[key]
	if !ok {
		return ImageRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return rec, nil
}

// Len returns the number of indexed images.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Stats returns image counts per category.
func (idx *Index) Stats() metrics.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var stats metrics.Stats
	for _, rec := range idx.records {
		switch rec.Category {
		case CategoryGrid:
			stats.Grids++
		default:
			stats.Images++
		}
	}
	stats.TotalImages = len(idx.records)
	return stats
}
