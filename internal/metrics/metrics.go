package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_viewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Index metrics
var (
	IndexImagesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_viewer_index_images",
			Help: "Number of indexed images by category",
		},
		[]string{"category"},
	)

	IndexMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_index_mutations_total",
			Help: "Total number of index mutations by operation",
		},
		[]string{"op"}, // "add", "remove", "update"
	)

	IndexEventErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_viewer_index_event_errors_total",
			Help: "Total number of filesystem events that could not be applied",
		},
	)

	IndexScanDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_index_scan_duration_seconds",
			Help: "Duration of the last full directory scan in seconds",
		},
	)

	IndexScanFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_viewer_index_scan_files_processed_total",
			Help: "Total number of regular files inspected by full scans",
		},
	)

	IndexScanWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_index_scan_workers",
			Help: "Number of workers used by the last full scan",
		},
	)

	IndexReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_index_reconcile_changes_total",
			Help: "Discrepancies repaired by reconciliation, by kind",
		},
		[]string{"kind"}, // "missing", "stale", "modified"
	)

	IndexLastReconcileTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_index_last_reconcile_timestamp",
			Help: "Unix timestamp of the last reconciliation",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_viewer_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_watcher_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)

	WatcherBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_viewer_watcher_batch_size",
			Help:    "Number of debounced events delivered per batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)
)

// Metadata metrics
var (
	MetadataExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_metadata_extractions_total",
			Help: "Total number of metadata extractions by result",
		},
		[]string{"result"}, // "ok", "not_png", "malformed", "error"
	)

	MetadataExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_viewer_metadata_extraction_duration_seconds",
			Help:    "Metadata extraction duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_viewer_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_filesystem_retry_attempts_total",
			Help: "Total number of retries after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_viewer_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_viewer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_viewer_memory_paused",
			Help: "1 while scan workers are paused for memory pressure",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_viewer_memory_pauses_total",
			Help: "Total number of times scan workers were paused for memory pressure",
		},
	)
)
