package handlers

import (
	"net/http"
	"runtime"
	"time"

	"image-viewer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Scanning   bool   `json:"scanning"`
	LastScan   string `json:"lastScan,omitempty"`
	ScanTime   string `json:"scanDuration,omitempty"`
	LastResync string `json:"lastResync,omitempty"`
	ScanError  string `json:"scanError,omitempty"`

	TotalImages int `json:"totalImages"`
	Images      int `json:"images"`
	Grids       int `json:"grids"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. It answers 503
// until the initial scan has finished.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.index.HealthStatus()

	response := HealthResponse{
		Status:       statusStarting,
		Ready:        status.Ready,
		Version:      startup.Version,
		Uptime:       status.Uptime,
		Scanning:     status.Scanning,
		ScanTime:     status.LastScanDuration,
		ScanError:    status.ScanError,
		TotalImages:  status.TotalImages,
		Images:       status.Images,
		Grids:        status.Grids,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if !status.LastScan.IsZero() {
		response.LastScan = status.LastScan.Format(time.RFC3339)
	}
	if !status.LastReconcile.IsZero() {
		response.LastResync = status.LastReconcile.Format(time.RFC3339)
	}

	code := http.StatusServiceUnavailable
	if status.Ready {
		code = http.StatusOK
		response.Status = statusHealthy
		if status.ScanError != "" {
			response.Status = statusDegraded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, response)
}

// LivenessCheck always answers 200 while the process serves requests
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only once the index is ready to answer queries
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.index.IsReady() {
		writeJSONStatus(w, http.StatusOK, "ready", "")
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready", "")
}
