package main

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"image-viewer/internal/handlers"
	"image-viewer/internal/indexer"
	"image-viewer/internal/logging"
	"image-viewer/internal/metrics"
	"image-viewer/internal/startup"
	"image-viewer/internal/watcher"

	"github.com/gorilla/mux"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestHandlers(t *testing.T) (*handlers.Handlers, *indexer.Index) {
	t.Helper()

	idx, err := indexer.New(t.TempDir(), indexer.Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	return handlers.New(idx, &startup.Config{}), idx
}

func TestSetupRouter(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := setupRouter(h)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/livez"},
		{http.MethodHead, "/livez"},
		{http.MethodGet, "/readyz"},
		{http.MethodGet, "/version"},
		{http.MethodGet, "/api/images"},
		{http.MethodGet, "/api/categories"},
		{http.MethodGet, "/api/directories"},
		{http.MethodGet, "/api/image/a/b.png"},
		{http.MethodGet, "/api/metadata/a/b.png"},
		{http.MethodGet, "/api/file/a/b.png"},
		{http.MethodHead, "/api/file/a/b.png"},
		{http.MethodGet, "/api/download/a/b.png"},
		{http.MethodPost, "/api/resync"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var match mux.RouteMatch
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if !router.Match(req, &match) || match.MatchErr != nil {
				t.Errorf("no route for %s %s (%v)", tt.method, tt.path, match.MatchErr)
			}
		})
	}

	var match mux.RouteMatch
	req := httptest.NewRequest(http.MethodGet, "/api/resync", http.NoBody)
	if router.Match(req, &match) && match.MatchErr == nil {
		t.Error("GET /api/resync should not match")
	}
}

func TestRouterPathVariable(t *testing.T) {
	h, idx := newTestHandlers(t)
	router := setupRouter(h)

	if err := idx.Scan(t.Context()); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/image/deep/dir/x.png", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("unindexed nested path code = %d, want 404", w.Code)
	}
}

func TestMetricsRouter(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := setupMetricsRouter(h)
	metrics.InitializeMetrics()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics code = %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"image_viewer_index_images", "image_viewer_metadata_extractions_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics is missing %s", name)
		}
	}
}

func TestWrapMiddleware(t *testing.T) {
	h, idx := newTestHandlers(t)
	if err := idx.Scan(t.Context()); err != nil {
		t.Fatal(err)
	}

	handler, err := wrapMiddleware(setupRouter(h), &startup.Config{LogHealthChecks: true})
	if err != nil {
		t.Fatalf("wrapMiddleware() error = %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("/readyz through middleware code = %d, want 200", w.Code)
	}
}

func TestServerTimeouts(t *testing.T) {
	srv := newServer(":0", http.NotFoundHandler())

	if srv.ReadHeaderTimeout != serverReadHeaderTimeout || srv.ReadTimeout != serverReadTimeout {
		t.Errorf("read timeouts = %v/%v", srv.ReadHeaderTimeout, srv.ReadTimeout)
	}
	if srv.WriteTimeout != serverWriteTimeout || srv.IdleTimeout != serverIdleTimeout {
		t.Errorf("write/idle timeouts = %v/%v", srv.WriteTimeout, srv.IdleTimeout)
	}
}

func TestRunIndexAndShutdown(t *testing.T) {
	root := t.TempDir()
	idx, err := indexer.New(root, indexer.Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	w, err := watcher.New(root, watcher.Options{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	go w.Start()

	indexDone := make(chan struct{})
	go runIndex(t.Context(), idx, w, &startup.Config{WatchDebounce: 20 * time.Millisecond}, indexDone)

	deadline := time.Now().Add(5 * time.Second)
	for !idx.IsReady() {
		if time.Now().After(deadline) {
			t.Fatal("index never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := os.WriteFile(filepath.Join(root, "late.png"), pngBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	for {
		if _, err := idx.Get("late.png"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("late.png was never indexed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv := newServer("127.0.0.1:0", http.NotFoundHandler())
	collector := metrics.NewCollector(idx, time.Hour)
	collector.Start()

	// cancel is a no-op: closing the watcher alone must end the consumer.
	shutdown(services{
		server:    srv,
		watcher:   w,
		collector: collector,
		cancel:    func() {},
		indexDone: indexDone,
	})

	select {
	case <-indexDone:
	default:
		t.Error("index consumer still running after shutdown")
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
