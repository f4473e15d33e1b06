package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"image-viewer/internal/filesystem"
	"image-viewer/internal/logging"
	"image-viewer/internal/mediatypes"
	"image-viewer/internal/memory"
	"image-viewer/internal/metrics"
)

// scanJob is a candidate file found by the walk.
type scanJob struct {
	path    string
	relPath string
	info    os.FileInfo
}

// scanResult is the outcome of inspecting one candidate.
type scanResult struct {
	record *ImageRecord
	err    error
}

// parallelScanner walks the tree on one goroutine and sniffs file content on
// a pool of workers.
type parallelScanner struct {
	root       string
	numWorkers int
	mem        *memory.Monitor

	jobs    chan scanJob
	results chan scanResult
	wg      sync.WaitGroup

	filesProcessed atomic.Int64
	imagesFound    atomic.Int64
	errorsCount    atomic.Int64
}

func newParallelScanner(root string, numWorkers int, mem *memory.Monitor) *parallelScanner {
	if numWorkers < 1 {
		numWorkers = 1
	}
	buffer := numWorkers * 64
	return &parallelScanner{
		root:       root,
		numWorkers: numWorkers,
		mem:        mem,
		jobs:       make(chan scanJob, buffer),
		results:    make(chan scanResult, buffer),
	}
}

// scan returns a record for every image under the root. Unreadable entries
// are skipped; the only error is context cancellation.
func (ps *parallelScanner) scan(ctx context.Context) (map[string]ImageRecord, error) {
	metrics.IndexScanWorkers.Set(float64(ps.numWorkers))

	for i := 0; i < ps.numWorkers; i++ {
		ps.wg.Add(1)
		go ps.worker(ctx, i)
	}

	records := make(map[string]ImageRecord)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range ps.results {
			if result.err != nil {
				ps.errorsCount.Add(1)
				logging.Debug("Index: skipping file: %v", result.err)
				continue
			}
			if result.record != nil {
				records[result.record.RelativePath] = *result.record
			}
		}
	}()

	ps.walkAndEnqueue(ctx)
	close(ps.jobs)
	ps.wg.Wait()
	close(ps.results)
	<-collected

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// walkAndEnqueue feeds regular files to the workers. Hidden entries and
// subtrees that cannot be read are skipped.
func (ps *parallelScanner) walkAndEnqueue(ctx context.Context) {
	err := filepath.WalkDir(ps.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		if err != nil {
			logging.Warn("Index: cannot access %s: %v", path, err)
			if d != nil && d.IsDir() && path != ps.root {
				return filepath.SkipDir
			}
			return nil
		}

		if path == ps.root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(ps.root, path)
		if err != nil {
			//nolint:nilerr // skip this file, keep walking
			return nil
		}

		info, err := ps.fileInfo(path, d)
		if err != nil {
			logging.Debug("Index: cannot stat %s: %v", path, err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		select {
		case ps.jobs <- scanJob{path: path, relPath: filepath.ToSlash(relPath), info: info}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		logging.Warn("Index: walk of %s ended early: %v", ps.root, err)
	}
}

// fileInfo follows symlinks so a linked image is indexed like a regular one.
func (ps *parallelScanner) fileInfo(path string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		return filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	}
	return d.Info()
}

func (ps *parallelScanner) worker(ctx context.Context, id int) {
	defer ps.wg.Done()

	logging.Debug("Index: scan worker %d started", id)

	for job := range ps.jobs {
		// Drain without work once cancelled so the walker never blocks.
		if ctx.Err() != nil {
			continue
		}
		if err := ps.mem.Wait(ctx); err != nil {
			continue
		}

		result := ps.processFile(job)
		ps.filesProcessed.Add(1)
		metrics.IndexScanFilesProcessed.Inc()
		if result.record != nil {
			ps.imagesFound.Add(1)
		}

		ps.results <- result
	}

	logging.Debug("Index: scan worker %d finished", id)
}

func (ps *parallelScanner) processFile(job scanJob) scanResult {
	format, err := mediatypes.Sniff(job.path)
	if err != nil {
		return scanResult{err: err}
	}
	if format == mediatypes.FormatUnknown {
		return scanResult{}
	}

	rec := newRecord(job.relPath, job.path, job.info, format)
	return scanResult{record: &rec}
}

// Scan rebuilds the index from disk. It is meant to run once at startup
// before Run starts applying events. The index is marked ready when it
// returns, whether or not the scan was cut short.
func (idx *Index) Scan(ctx context.Context) error {
	idx.setScanning(true)
	defer idx.setScanning(false)

	start := time.Now()
	logging.Info("Index: scanning %s with %d workers", idx.root, idx.workers)

	ps := newParallelScanner(idx.root, idx.workers, idx.mem)
	records, err := ps.scan(ctx)
	duration := time.Since(start)

	idx.stateMu.Lock()
	idx.ready = true
	idx.lastScan = time.Now()
	idx.lastScanDuration = duration
	idx.scanErr = err
	idx.stateMu.Unlock()

	if err != nil {
		logging.Error("Index: scan of %s aborted after %v: %v", idx.root, duration, err)
		return err
	}

	idx.replaceAll(records)
	metrics.IndexScanDuration.Set(duration.Seconds())

	stats := idx.Stats()
	logging.Info("Index: scan complete in %v: %d images (%d image, %d grid) from %d files, %d unreadable",
		duration.Round(time.Millisecond), stats.TotalImages, stats.Images, stats.Grids,
		ps.filesProcessed.Load(), ps.errorsCount.Load())
	return nil
}

// ReconcileResult counts the discrepancies repaired by Reconcile.
type ReconcileResult struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// Changed reports whether anything was repaired.
func (r ReconcileResult) Changed() bool {
	return r.Added+r.Removed+r.Modified > 0
}

// Reconcile rescans the tree and repairs the index: images missing from the
// index are added, records whose file is gone are removed and records whose
// file changed are refreshed. It recovers from events the kernel dropped.
// Like every mutation it must run on the goroutine that applies events.
func (idx *Index) Reconcile(ctx context.Context) (ReconcileResult, error) {
	ps := newParallelScanner(idx.root, idx.workers, idx.mem)
	onDisk, err := ps.scan(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	var result ReconcileResult

	idx.mu.Lock()
	for key, rec := range onDisk {
		current, ok := idx.records[key]
		switch {
		case !ok:
			idx.putLocked(rec)
			result.Added++
		case !unchanged(current, rec):
			idx.putLocked(rec)
			result.Modified++
		}
	}
	var stale []string
	for key := range idx.records {
		if _, ok := onDisk[key]; !ok {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		idx.deleteLocked(key)
	}
	result.Removed = len(stale)
	idx.mu.Unlock()

	metrics.IndexReconcileTotal.WithLabelValues("missing").Add(float64(result.Added))
	metrics.IndexReconcileTotal.WithLabelValues("stale").Add(float64(result.Removed))
	metrics.IndexReconcileTotal.WithLabelValues("modified").Add(float64(result.Modified))
	metrics.IndexLastReconcileTimestamp.SetToCurrentTime()

	idx.stateMu.Lock()
	idx.lastReconcile = time.Now()
	idx.stateMu.Unlock()

	if result.Changed() {
		logging.Info("Index: reconcile repaired %d missing, %d stale, %d modified",
			result.Added, result.Removed, result.Modified)
	} else {
		logging.Debug("Index: reconcile found no changes")
	}
	return result, nil
}
