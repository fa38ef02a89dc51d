// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig],
// using github.com/kelseyhightower/envconfig with the THUMBNAILER prefix:
//
//   - THUMBNAILER_CACHE_DIR: directory holding thumbnails/ (default: $XDG_CACHE_HOME or ~/.cache)
//   - THUMBNAILER_APP_ID: namespace for failure markers (default: desktop-thumbnailer)
//   - THUMBNAILER_SIZE: normal (128px) or large (256px) (default: normal)
//   - THUMBNAILER_SETTINGS_DB: SQLite settings database (default: in memory)
//   - THUMBNAILER_THUMBNAILERS_FILE: YAML file of external thumbnailers to import
//   - THUMBNAILER_WATCH_THUMBNAILERS: re-import the file when it changes (default: true)
//   - THUMBNAILER_PORT: HTTP server port (default: 8080)
//   - THUMBNAILER_METRICS_ENABLED: expose /metrics (default: true)
//   - THUMBNAILER_METRICS_INTERVAL: cache size collection interval (default: 1m)
//   - THUMBNAILER_LOG_HEALTH_CHECKS: log /healthz requests (default: false)
//   - THUMBNAILER_USE_VIPS: decode with libvips when available (default: true)
//   - THUMBNAILER_WORKERS: worker count for batch generation
//   - THUMBNAILER_LOG_LEVEL or LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Build Information
//
// Version, Commit and BuildTime are injected at build time:
//
//	go build -ldflags "-X desktop-thumbnailer/internal/startup.Version=1.0.0"
package startup
