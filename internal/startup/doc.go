// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read from environment variables by [LoadConfig]. A .env
// file in the working directory (or the file named by ENV_FILE) is loaded
// first; variables already present in the environment take precedence.
//
//   - IMAGE_DIR: Root directory to index (default: current directory)
//   - PORT: HTTP server port (default: 7861)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - WATCH_DEBOUNCE: Quiet period before filesystem events are applied (default: 100ms)
//   - RESYNC_INTERVAL: Periodic reconciliation interval, 0 disables (default: 10m)
//   - DEFAULT_CATEGORY: Category used when a request names none: image or grid (default: all)
//   - SCAN_WORKERS: Parallel workers for full scans (default: derived from CPU count)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log image file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit configuration
//   - [LogIndexInit], [LogIndexReady]: Initial scan
//   - [LogWatcherStarted]: Filesystem watcher
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
