package startup

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"

	"desktop-thumbnailer/internal/filesystem"
	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/thumbnail"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// EnvPrefix prefixes every configuration variable.
const EnvPrefix = "THUMBNAILER"

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

// Config holds all application configuration. Every field is read from
// THUMBNAILER_<name>.
type Config struct {
	// CacheDir holds the thumbnails tree. Defaults to the user cache dir.
	CacheDir string `envconfig:"CACHE_DIR"`
	AppID    string `envconfig:"APP_ID" default:"desktop-thumbnailer"`
	Size     string `envconfig:"SIZE" default:"normal"`

	// SettingsDB is the SQLite settings database. Empty keeps settings in
	// memory for the lifetime of the process.
	SettingsDB string `envconfig:"SETTINGS_DB"`
	// ThumbnailersFile is imported into the settings tree at startup.
	ThumbnailersFile  string `envconfig:"THUMBNAILERS_FILE"`
	WatchThumbnailers bool   `envconfig:"WATCH_THUMBNAILERS" default:"true"`

	// ListenAddr is the interface the HTTP API binds to. The API is
	// unauthenticated; use 0.0.0.0 or :: only on trusted networks.
	ListenAddr      string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1"`
	Port            string        `envconfig:"PORT" default:"8080"`
	MetricsEnabled  bool          `envconfig:"METRICS_ENABLED" default:"true"`
	MetricsInterval time.Duration `envconfig:"METRICS_INTERVAL" default:"1m"`
	LogHealthChecks bool          `envconfig:"LOG_HEALTH_CHECKS" default:"false"`
	UseVips         bool          `envconfig:"USE_VIPS" default:"true"`

	// MemoryLimit is the container memory limit in bytes, typically from the
	// Kubernetes Downward API. Zero leaves GOMEMLIMIT alone.
	MemoryLimit int64   `envconfig:"MEMORY_LIMIT"`
	MemoryRatio float64 `envconfig:"MEMORY_RATIO" default:"0.85"`

	SizeClass thumbnail.Size `ignored:"true"`
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ListenAddr, c.Port)
}

// LoadConfig reads the configuration from the environment and resolves
// derived values. It does not touch the filesystem.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg and fills in derived values. It is called again after
// command-line overrides are applied.
func Validate(cfg *Config) error {
	size, err := thumbnail.ParseSize(cfg.Size)
	if err != nil {
		return err
	}
	cfg.SizeClass = size

	if cfg.CacheDir == "" {
		root, err := thumbnail.DefaultCacheRoot()
		if err != nil {
			return err
		}
		cfg.CacheDir = root
	}
	if cfg.CacheDir, err = filepath.Abs(cfg.CacheDir); err != nil {
		return fmt.Errorf("failed to resolve cache directory path: %w", err)
	}

	if err := thumbnail.ValidateAppID(cfg.AppID); err != nil {
		return err
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = time.Minute
	}
	return nil
}

// Usage prints the supported environment variables.
func Usage() error {
	return envconfig.Usage(EnvPrefix, &Config{})
}

// LogConfig logs the banner, system information and cfg.
func LogConfig(cfg *Config) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  APP_ID:              %s", cfg.AppID)
	logging.Info("  SIZE:                %s (%dpx)", cfg.SizeClass, cfg.SizeClass.Pixels())
	logging.Info("  SETTINGS_DB:         %s", valueOr(cfg.SettingsDB, "(in memory)"))
	logging.Info("  THUMBNAILERS_FILE:   %s", valueOr(cfg.ThumbnailersFile, "(none)"))
	logging.Info("  WATCH_THUMBNAILERS:  %v", cfg.WatchThumbnailers)
	logging.Info("  LISTEN_ADDR:         %s", valueOr(cfg.ListenAddr, "(all interfaces)"))
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  USE_VIPS:            %v", cfg.UseVips)
	logging.Info("  MEMORY_LIMIT:        %d (ratio %.2f)", cfg.MemoryLimit, cfg.MemoryRatio)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

// PrepareCacheDir creates the thumbnails tree under cfg.CacheDir and checks
// that it is writable.
func PrepareCacheDir(cfg *Config) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	root := thumbnail.NewPathResolver(cfg.CacheDir).Root()
	if err := ensureDirectory(root, "thumbnails"); err != nil {
		return fmt.Errorf("thumbnail directory error: %w", err)
	}
	if err := testWriteAccess(root); err != nil {
		return fmt.Errorf("thumbnail directory is not writable: %w", err)
	}
	logging.Info("  [OK] Thumbnail directory is writable: %s", root)
	return nil
}

// LogCodecs logs the registered codecs.
func LogCodecs(names []string, vipsEnabled bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CODECS")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Registered:      %s", strings.Join(names, ", "))
	logging.Info("  libvips:         %s", enabledString(vipsEnabled))
}

// LogScripts logs the registered external thumbnailers.
func LogScripts(scripts map[string]string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTERNAL THUMBNAILERS")
	logging.Info("------------------------------------------------------------")
	if len(scripts) == 0 {
		logging.Info("  None registered")
		return
	}

	types := make([]string, 0, len(scripts))
	for t := range scripts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		logging.Info("  %-28s %s", t, scripts[t])
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
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

// LogHTTPRoutes logs all registered HTTP routes when debug logging is on.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
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
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			label := group
			if label == "" {
				label = "root"
			}
			logging.Debug("  [%s]", label)
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set %s_LOG_HEALTH_CHECKS=true to enable)", EnvPrefix)
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(addr string, metricsEnabled bool, startup time.Duration) {
	base := "http://" + displayAddr(addr)
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startup)
	logging.Info("  Listening on:    %s", addr)
	logging.Info("  Thumbnail API:   %s/api/thumbnail", base)
	if metricsEnabled {
		logging.Info("  Metrics:         %s/metrics", base)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// displayAddr replaces a wildcard host with localhost for printable URLs.
func displayAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
  _____ _                     _                 _ _
 |_   _| |__  _   _ _ __ ___ | |__  _ __   __ _(_) | ___ _ __
   | | | '_ \| | | | '_ ' _ \| '_ \| '_ \ / _' | | |/ _ \ '__|
   | | | | | | |_| | | | | | | |_) | | | | (_| | | |  __/ |
   |_| |_| |_|\__,_|_| |_| |_|_.__/|_| |_|\__,_|_|_|\___|_|

------------------------------------------------------------`
	fmt.Println(banner)
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
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := filesystem.EnsureDir(path); err != nil {
			return err
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	f, err := filesystem.CreateTemp(filepath.Join(dir, ".write-test"))
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}
