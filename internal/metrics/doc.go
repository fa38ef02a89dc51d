// Package metrics provides Prometheus instrumentation for the thumbnailer.
//
// All metrics are prefixed with "thumbnailer_".
//
// # Metric Categories
//
// ## Cache
//   - ThumbnailLookupsTotal: lookups by result (hit, miss, stale)
//   - ThumbnailGenerationsTotal: generations by source (script, codec, none) and status
//   - ThumbnailGenerationDuration: generation time by source
//   - ThumbnailSavesTotal: cache writes by kind (thumbnail, failure) and status
//   - ThumbnailCacheSize / ThumbnailCacheCount: per-directory usage, refreshed by Collector
//
// ## Script registry
//   - ScriptRunsTotal: external thumbnailer invocations by status
//   - ScriptRegistryReloads: registry reloads by status
//   - ScriptRegistrySize: number of registered MIME types
//
// ## Filesystem
//
// Retry metrics for stale NFS handles, recorded through the filesystem.Observer
// returned by NewFilesystemObserver.
//
// ## HTTP
//   - HTTPRequestsTotal, HTTPRequestDuration
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
