package metrics

import (
	"sync"
	"time"

	"image-viewer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	Stats() Stats
}

// Stats holds the current index statistics
type Stats struct {
	TotalImages int `json:"totalImages"`
	Images      int `json:"images"`
	Grids       int `json:"grids"`
}

// Collector periodically copies index statistics into gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	IndexImagesTotal.WithLabelValues("image").Set(float64(stats.Images))
	IndexImagesTotal.WithLabelValues("grid").Set(float64(stats.Grids))

	logging.Debug("Metrics collected: images=%d (image=%d, grid=%d)",
		stats.TotalImages, stats.Images, stats.Grids)
}
