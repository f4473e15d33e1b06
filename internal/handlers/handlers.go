package handlers

import (
	"image-viewer/internal/indexer"
	"image-viewer/internal/startup"
)

// ImageIndex is the part of the live index the HTTP layer reads from.
type ImageIndex interface {
	Query(opts indexer.ListOptions) ([]indexer.ImageRecord, error)
	Categories() []indexer.Category
	Get(relPath string) (indexer.ImageRecord, error)
	NeighborsIn(relPath string, opts indexer.ListOptions) (indexer.Neighbors, error)
	Directories(dir string) []indexer.DirectoryEntry
	RequestResync() bool
	IsReady() bool
	HealthStatus() indexer.HealthStatus
}

type Handlers struct {
	index           ImageIndex
	defaultCategory indexer.Category
}

func New(idx ImageIndex, config *startup.Config) *Handlers {
	h := &Handlers{index: idx}
	if config != nil {
		h.defaultCategory = indexer.Category(config.DefaultCategory)
	}
	return h
}
