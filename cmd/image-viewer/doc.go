// Package main provides the entry point for the image viewer.
//
// The image viewer keeps a live, in-memory index of the images below one
// directory and serves it over a small JSON API for a browsing UI:
// ordered listings by category, previous/next navigation, PNG text
// metadata, and the files themselves.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT/MEMORY_RATIO
//  2. Configuration loading: .env file and environment variables
//  3. Metrics and filesystem instrumentation
//  4. Filesystem watcher on the image directory
//  5. Initial scan, then the index consumer applies watcher batches and
//     periodic reconciliations
//  6. HTTP servers: the API (default port 7861) and Prometheus metrics
//     (default port 9090)
//  7. Graceful shutdown on SIGINT/SIGTERM
//
// The API answers while the initial scan runs; /readyz reports 503 until
// it completes.
//
// # Graceful Shutdown
//
//  1. Stop accepting HTTP requests
//  2. Close the watcher, which ends the index consumer
//  3. Stop the metrics collector and metrics server
//
// # Related Packages
//
//   - [image-viewer/internal/indexer]: the live image index
//   - [image-viewer/internal/watcher]: debounced filesystem notifications
//   - [image-viewer/internal/media]: PNG text metadata and dimensions
//   - [image-viewer/internal/handlers]: HTTP API
//   - [image-viewer/internal/startup]: configuration and lifecycle logging
package main
