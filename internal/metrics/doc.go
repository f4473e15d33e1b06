// Package metrics provides Prometheus instrumentation for the image viewer.
//
// All metrics are registered with promauto on the default registry and are
// prefixed with "image_viewer_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, normalized path and status
//   - HTTPRequestDuration: request latency by method and path
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Index Metrics
//
//   - IndexImagesTotal: indexed images per category (image, grid), refreshed by the Collector
//   - IndexMutationsTotal: add/remove/update operations applied to the index
//   - IndexEventErrors: filesystem events that could not be applied
//   - IndexScanDuration, IndexScanFilesProcessed, IndexScanWorkers: full scan behaviour
//   - IndexReconcileTotal, IndexLastReconcileTimestamp: periodic disk reconciliation
//
// ## Watcher Metrics
//
//   - WatcherEventsTotal: raw fsnotify events by type
//   - WatcherErrors: errors reported by the OS watch
//   - WatchedDirectories: directories currently registered with the watch
//   - WatcherBatchSize: debounced events per delivered batch
//
// ## Metadata Metrics
//
//   - MetadataExtractionsTotal: PNG text chunk extractions by result
//   - MetadataExtractionDuration: extraction latency
//
// ## Memory Metrics
//
//   - MemoryUsageRatio: heap allocation relative to the configured limit
//   - MemoryPaused, MemoryPausesTotal: scan worker pauses under memory pressure
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer implementation returned by
// NewFilesystemObserver, so the filesystem package does not import this one.
//
// # Usage
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape, then expose promhttp.Handler on the
// metrics port.
package metrics
