package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-viewer/internal/filesystem"
	"image-viewer/internal/handlers"
	"image-viewer/internal/indexer"
	"image-viewer/internal/logging"
	"image-viewer/internal/memory"
	"image-viewer/internal/metrics"
	"image-viewer/internal/middleware"
	"image-viewer/internal/startup"
	"image-viewer/internal/watcher"

	"github.com/gorilla/mux"
)

const (
	shutdownTimeout         = 30 * time.Second
	metricsCollectInterval  = 15 * time.Second
	serverReadHeaderTimeout = 10 * time.Second
	serverReadTimeout       = 15 * time.Second
	serverWriteTimeout      = 60 * time.Second
	serverIdleTimeout       = 60 * time.Second
)

// services groups everything that has to be stopped on shutdown.
type services struct {
	server        *http.Server
	metricsServer *http.Server
	watcher       *watcher.Watcher
	collector     *metrics.Collector
	cancel        context.CancelFunc
	indexDone     <-chan struct{}
}

func main() {
	startTime := time.Now()

	memLimit := memory.ApplyLimitFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memLimit)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"images": config.ImageDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	ctx, cancel := context.WithCancel(context.Background())

	memConfig := memory.DefaultConfig()
	memConfig.LimitBytes = memLimit.GoMemLimit
	memMonitor := memory.NewMonitor(memConfig)
	go memMonitor.Run(ctx)

	idx, err := indexer.New(config.ImageDir, indexer.Options{
		Workers: config.ScanWorkers,
		Memory:  memMonitor,
	})
	if err != nil {
		startup.LogFatal("Failed to create index: %v", err)
	}

	// The watcher starts before the scan so changes made while scanning are
	// queued rather than lost.
	w, err := watcher.New(idx.Root(), watcher.Options{Debounce: config.WatchDebounce})
	if err != nil {
		startup.LogFatal("Failed to start watcher: %v", err)
	}
	go w.Start()

	indexDone := make(chan struct{})
	go runIndex(ctx, idx, w, config, indexDone)

	collector := metrics.NewCollector(idx, metricsCollectInterval)
	collector.Start()

	h := handlers.New(idx, config)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	handler, err := wrapMiddleware(router, config)
	if err != nil {
		startup.LogFatal("Middleware error: %v", err)
	}

	srv := newServer(":"+config.Port, handler)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newServer(":"+config.MetricsPort, setupMetricsRouter(h))
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		handleShutdown(services{
			server:        srv,
			metricsServer: metricsSrv,
			watcher:       w,
			collector:     collector,
			cancel:        cancel,
			indexDone:     indexDone,
		})
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	<-shutdownDone
}

// runIndex performs the initial scan and then applies watcher batches until
// ctx is cancelled or the watcher closes.
func runIndex(ctx context.Context, idx *indexer.Index, w *watcher.Watcher, config *startup.Config, done chan<- struct{}) {
	defer close(done)

	startup.LogIndexInit(idx.Root())
	scanStart := time.Now()
	if err := idx.Scan(ctx); err != nil {
		logging.Error("Initial scan failed: %v", err)
	}
	stats := idx.Stats()
	startup.LogIndexReady(stats.Images, stats.Grids, time.Since(scanStart))
	startup.LogWatcherStarted(w.WatchedDirectories(), config.WatchDebounce, config.ResyncInterval)

	if err := idx.Run(ctx, w.Events(), config.ResyncInterval); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("Index consumer stopped: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health and version
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", h.ListImages).Methods("GET")
	api.HandleFunc("/categories", h.GetCategories).Methods("GET")
	api.HandleFunc("/directories", h.GetDirectories).Methods("GET")
	api.HandleFunc("/image/{path:.*}", h.GetImage).Methods("GET")
	api.HandleFunc("/metadata/{path:.*}", h.GetMetadata).Methods("GET")
	api.HandleFunc("/file/{path:.*}", h.GetFile).Methods("GET", "HEAD")
	api.HandleFunc("/download/{path:.*}", h.DownloadFile).Methods("GET")
	api.HandleFunc("/resync", h.TriggerResync).Methods("POST")

	return r
}

func setupMetricsRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", handlers.MetricsHandler()).Methods("GET")
	r.HandleFunc("/health", h.LivenessCheck).Methods("GET")
	return r
}

// wrapMiddleware applies, from the outside in: access logging, compression
// and request metrics.
func wrapMiddleware(router http.Handler, config *startup.Config) (http.Handler, error) {
	compress, err := middleware.Compression(middleware.DefaultCompressionConfig())
	if err != nil {
		return nil, err
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)
	handler = compress(handler)
	return middleware.Logger(loggingConfig)(handler), nil
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}
}

func handleShutdown(s services) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(s)
}

func shutdown(s services) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping watcher")
	if err := s.watcher.Close(); err != nil {
		logging.Warn("Watcher close error: %v", err)
	}
	startup.LogShutdownStepComplete("Watcher stopped")

	startup.LogShutdownStep("Stopping index")
	s.cancel()
	select {
	case <-s.indexDone:
		startup.LogShutdownStepComplete("Index stopped")
	case <-ctx.Done():
		logging.Warn("Index did not stop within %v", shutdownTimeout)
	}

	s.collector.Stop()

	if s.metricsServer != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
