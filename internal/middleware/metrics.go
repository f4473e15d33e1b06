package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"image-viewer/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that are not recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus request metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			path := normalizePath(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// pathRoutes are the /api routes whose trailing segments name an image.
var pathRoutes = map[string]bool{
	"image":    true,
	"metadata": true,
	"file":     true,
	"download": true,
}

// normalizePath collapses image paths into a {path} placeholder so the label
// set stays bounded.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		if healthCheckPaths[path] || path == "/version" || path == "/" {
			return path
		}
		return "other"
	}

	route, tail, _ := strings.Cut(rest, "/")
	if pathRoutes[route] && tail != "" {
		return "/api/" + route + "/{path}"
	}
	if tail != "" {
		return "/api/" + route + "/{other}"
	}
	return path
}
