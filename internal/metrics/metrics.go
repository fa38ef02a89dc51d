package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Thumbnail cache metrics
var (
	ThumbnailLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "stale"
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_generations_total",
			Help: "Total number of thumbnail generations by source and status",
		},
		[]string{"source", "status"}, // source: "script", "codec", "none"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	ThumbnailSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_saves_total",
			Help: "Total number of cache writes by kind and status",
		},
		[]string{"kind", "status"}, // kind: "thumbnail", "failure"
	)

	ThumbnailCacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_cache_size_bytes",
			Help: "Size of the thumbnail cache in bytes by directory",
		},
		[]string{"dir"}, // "normal", "large", "fail"
	)

	ThumbnailCacheCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_cache_entries",
			Help: "Number of entries in the thumbnail cache by directory",
		},
		[]string{"dir"},
	)
)

// Script registry metrics
var (
	ScriptRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_script_runs_total",
			Help: "Total number of external thumbnailer invocations by status",
		},
		[]string{"status"}, // "success", "exit_error", "malformed", "load_error"
	)

	ScriptRegistryReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_script_registry_reloads_total",
			Help: "Total number of script registry reloads by status",
		},
		[]string{"status"}, // "success", "error"
	)

	ScriptRegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_script_registry_entries",
			Help: "Number of MIME types with a registered external thumbnailer",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_filesystem_retry_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_memory_paused",
			Help: "1 while thumbnail generation is paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
