package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"image-viewer/internal/logging"
	"image-viewer/internal/memory"
	"image-viewer/internal/workers"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	ImageDir        string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	WatchDebounce   time.Duration
	ResyncInterval  time.Duration
	DefaultCategory string
	LogStaticFiles  bool
	LogHealthChecks bool
	ScanWorkers     int

	// EnvFile is the .env file that was loaded, empty if none.
	EnvFile string
}

const (
	defaultWatchDebounce  = 100 * time.Millisecond
	defaultResyncInterval = 10 * time.Minute
	maxScanWorkers        = 16
)

// LoadConfig loads and validates configuration from environment variables.
// A .env file is read first; variables already set in the environment win.
func LoadConfig() (*Config, error) {
	envFile := loadEnvFile()

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if envFile != "" {
		logging.Info("  Loaded environment file: %s", envFile)
	}

	imageDir := getEnv("IMAGE_DIR", ".")
	port := getEnv("PORT", "7861")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	watchDebounce := getEnvDuration("WATCH_DEBOUNCE", defaultWatchDebounce)
	resyncInterval := getEnvDuration("RESYNC_INTERVAL", defaultResyncInterval)
	defaultCategory := normalizeCategory(getEnv("DEFAULT_CATEGORY", ""))
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	scanWorkers := getEnvInt("SCAN_WORKERS", workers.ForIO(maxScanWorkers))

	logging.Info("  IMAGE_DIR:           %s", imageDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  WATCH_DEBOUNCE:      %v", watchDebounce)
	logging.Info("  RESYNC_INTERVAL:     %v", durationOrDisabled(resyncInterval))
	logging.Info("  DEFAULT_CATEGORY:    %s", categoryOrAll(defaultCategory))
	logging.Info("  LOG_STATIC_FILES:    %v", logStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  SCAN_WORKERS:        %d", scanWorkers)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if watchDebounce <= 0 {
		logging.Warn("  WATCH_DEBOUNCE must be positive, using default: %v", defaultWatchDebounce)
		watchDebounce = defaultWatchDebounce
	}
	if scanWorkers < 1 {
		logging.Warn("  SCAN_WORKERS must be at least 1, using 1")
		scanWorkers = 1
	}
	if resyncInterval < 0 {
		logging.Warn("  Negative RESYNC_INTERVAL, disabling periodic resync")
		resyncInterval = 0
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	imageDir, err := filepath.Abs(imageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image directory path: %w", err)
	}
	logging.Info("  Image directory (absolute): %s", imageDir)

	if err := ensureDirectory(imageDir, "image"); err != nil {
		return nil, fmt.Errorf("image directory error: %w", err)
	}

	return &Config{
		ImageDir:        imageDir,
		Port:            port,
		MetricsPort:     metricsPort,
		MetricsEnabled:  metricsEnabled,
		WatchDebounce:   watchDebounce,
		ResyncInterval:  resyncInterval,
		DefaultCategory: defaultCategory,
		LogStaticFiles:  logStaticFiles,
		LogHealthChecks: logHealthChecks,
		ScanWorkers:     scanWorkers,
		EnvFile:         envFile,
	}, nil
}

// loadEnvFile loads ENV_FILE if set, otherwise ./.env when present. It
// returns the path that was loaded.
func loadEnvFile() string {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); err != nil {
			return ""
		}
	}

	if err := godotenv.Load(path); err != nil {
		logging.Warn("Failed to load environment file %s: %v", path, err)
		return ""
	}
	return path
}

// normalizeCategory accepts "image" and "grid" as well as their plurals.
// Anything else means no default filter.
func normalizeCategory(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return ""
	case "image", "images":
		return "image"
	case "grid", "grids":
		return "grid"
	default:
		logging.Warn("Unknown DEFAULT_CATEGORY %q, listing all categories", value)
		return ""
	}
}

func categoryOrAll(category string) string {
	if category == "" {
		return "(all)"
	}
	return category
}

func durationOrDisabled(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	return d.String()
}

// LogMemoryConfig logs the memory limit applied at startup
func LogMemoryConfig(limit memory.Limit) {
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !limit.Configured() {
		logging.Info("  No memory limit configured (set MEMORY_LIMIT to enable)")
		logging.Info("")
		return
	}

	switch limit.Source {
	case memory.SourceGOMEMLIMIT:
		logging.Info("  GOMEMLIMIT (from environment): %s", memory.FormatBytes(limit.GoMemLimit))
	case memory.SourceMemoryLimit:
		logging.Info("  Container limit: %s", memory.FormatBytes(limit.ContainerLimit))
		logging.Info("  GOMEMLIMIT:      %s (%.0f%%)", memory.FormatBytes(limit.GoMemLimit), limit.Ratio*100)
	}
	logging.Info("")
}

// LogIndexInit logs index initialization
func LogIndexInit(root string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INDEX INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Root: %s", root)
	logging.Info("  Scanning...")
}

// LogIndexReady logs the result of the initial scan
func LogIndexReady(images, grids int, duration time.Duration) {
	logging.Info("  [OK] Indexed %d images and %d grids in %v", images, grids, duration.Round(time.Millisecond))
}

// LogWatcherStarted logs the filesystem watcher start
func LogWatcherStarted(directories int, debounce, resync time.Duration) {
	logging.Info("  [OK] Watching %d directories (debounce %v, resync %s)",
		directories, debounce, durationOrDisabled(resync))
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Subrouters without a path of their own
			return nil
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes (at debug level) and the
// access log settings.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			group := getRouteGroup(route.Path)
			groups[group] = append(groups[group], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group == "" {
				logging.Debug("  [root]")
			} else {
				logging.Debug("  [%s]", group)
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Image file logging: ON")
	} else {
		logging.Info("    Image file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    ____                              _    ___
   /  _/___ ___  ____ _____ ____     | |  / (_)__ _      _____  _____
   / // __ '__ \/ __ '/ __ '/ _ \    | | / / / _ \ | /| / / _ \/ ___/
 _/ // / / / / / /_/ / /_/ /  __/    | |/ / /  __/ |/ |/ /  __/ /
/___/_/ /_/ /_/\__,_/\__, /\___/     |___/_/\___/|__/|__/\___/_/
                    /____/
------------------------------------------------------------`
	logging.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// ensureDirectory creates path if missing and checks that it is a readable
// directory.
func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Warn("  %s directory does not exist, creating it", name)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("directory is not readable: %w", err)
	}

	if logging.IsDebugEnabled() {
		files, dirs := 0, 0
		for _, e := range entries {
			if e.IsDir() {
				dirs++
			} else {
				files++
			}
		}
		logging.Debug("    Contents: %d files, %d directories (top level)", files, dirs)
	}

	logging.Info("  [OK] %s directory is readable", name)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration parses a Go duration. A bare "0" is accepted and means zero.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
