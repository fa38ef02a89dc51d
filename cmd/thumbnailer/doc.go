// Command thumbnailer maintains the freedesktop.org thumbnail cache.
//
// It runs either as a long-lived HTTP service or as a one-shot tool:
//
//	thumbnailer serve                  # HTTP API, metrics and health probes
//	thumbnailer generate a.jpg b.png   # generate missing thumbnails
//	thumbnailer lookup a.jpg           # print a valid cache entry
//	thumbnailer fail-check a.jpg       # report a current failure marker
//	thumbnailer scripts                # list external thumbnailers
//	thumbnailer env                    # list THUMBNAILER_* variables
//
// # HTTP Endpoints
//
//   - GET /api/thumbnail?uri=&mtime=&mime=: serve (generating if needed) a PNG
//   - GET /api/thumbnail/status?uri=&mtime=: cache and failure state
//   - GET /api/scripts: registered external thumbnailers
//   - POST /api/scripts/reload: schedule a registry reload
//   - GET /healthz, /livez, /version, /metrics
//
// For local file URIs mtime and mime may be omitted; they are read from the
// file.
//
// # Configuration
//
// Settings come from THUMBNAILER_* environment variables (see the env
// command) and may be overridden with the global flags. External
// thumbnailers live in the settings tree under /desktop/gnome/thumbnailers,
// which can be stored in SQLite (THUMBNAILER_SETTINGS_DB) and seeded from a
// YAML file (THUMBNAILER_THUMBNAILERS_FILE). While serving, edits to that
// file are picked up without a restart.
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the metrics collector stops, the HTTP server drains
// for up to 30 seconds, then the settings store and libvips are released.
package main
