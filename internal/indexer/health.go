package indexer

import "time"

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready            bool      `json:"ready"`
	Scanning         bool      `json:"scanning"`
	Root             string    `json:"root"`
	StartTime        time.Time `json:"startTime"`
	Uptime           string    `json:"uptime"`
	LastScan         time.Time `json:"lastScan,omitempty"`
	LastScanDuration string    `json:"lastScanDuration,omitempty"`
	LastReconcile    time.Time `json:"lastReconcile,omitempty"`
	ScanError        string    `json:"scanError,omitempty"`
	TotalImages      int       `json:"totalImages"`
	Images           int       `json:"images"`
	Grids            int       `json:"grids"`
}

// IsReady returns true once the initial scan has finished.
func (idx *Index) IsReady() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	return idx.ready
}

func (idx *Index) setScanning(scanning bool) {
	idx.stateMu.Lock()
	idx.scanning = scanning
	idx.stateMu.Unlock()
}

// HealthStatus returns detailed health information.
func (idx *Index) HealthStatus() HealthStatus {
	stats := idx.Stats()

	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	status := HealthStatus{
		Ready:         idx.ready,
		Scanning:      idx.scanning,
		Root:          idx.root,
		StartTime:     idx.startTime,
		Uptime:        time.Since(idx.startTime).Round(time.Second).String(),
		LastScan:      idx.lastScan,
		LastReconcile: idx.lastReconcile,
		TotalImages:   stats.TotalImages,
		Images:        stats.Images,
		Grids:         stats.Grids,
	}
	if idx.lastScanDuration > 0 {
		status.LastScanDuration = idx.lastScanDuration.String()
	}
	if idx.scanErr != nil {
		status.ScanError = idx.scanErr.Error()
	}
	return status
}
