// Package handlers provides the HTTP API of the image viewer.
//
// It includes handlers for:
//   - Paginated image listing by category, glob and directory
//   - Image detail with previous/next navigation
//   - PNG text metadata
//   - Serving and downloading indexed files
//   - Resync requests, health checks and build information
//
// Every path-bearing route resolves through the index, so only indexed
// files are ever read from disk.
package handlers
