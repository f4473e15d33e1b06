// Package indexer keeps an in-memory catalogue of the images under a
// directory tree and answers the queries the browsing UI needs.
//
// Records are keyed by their slash-separated path relative to the root and
// kept ordered newest first (modification time descending, then path
// ascending), so listings and previous/next navigation are stable. Each
// record carries a Category derived from its file name: names containing
// "grid" are grids, everything else is an image.
//
// Only files whose content is a supported image are indexed; the extension
// merely decides which filesystem events are worth looking at. Hidden files
// and directories (prefixed with '.') are excluded.
//
// Lifecycle:
//   - New resolves the root and creates an empty index
//   - Scan performs the initial parallel walk and marks the index ready
//   - Run is the single writer afterwards: it applies watcher batches and
//     periodically reconciles the index against disk
//
// Queries (List, Query, Get, Neighbors, Directories, Stats) are safe to call
// from any goroutine at any time and return copies.
package indexer
