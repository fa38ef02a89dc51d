package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, result := range []string{"hit", "miss", "stale"} {
		ThumbnailLookupsTotal.WithLabelValues(result)
	}

	for _, source := range []string{"script", "codec", "none"} {
		ThumbnailGenerationDuration.WithLabelValues(source)
		ThumbnailGenerationsTotal.WithLabelValues(source, "success")
		ThumbnailGenerationsTotal.WithLabelValues(source, "error")
	}

	for _, kind := range []string{"thumbnail", "failure"} {
		ThumbnailSavesTotal.WithLabelValues(kind, "success")
		ThumbnailSavesTotal.WithLabelValues(kind, "error")
	}

	for _, dir := range []string{"normal", "large", "fail"} {
		ThumbnailCacheSize.WithLabelValues(dir)
		ThumbnailCacheCount.WithLabelValues(dir)
	}

	for _, status := range []string{"success", "exit_error", "malformed", "load_error"} {
		ScriptRunsTotal.WithLabelValues(status)
	}

	ScriptRegistryReloads.WithLabelValues("success")
	ScriptRegistryReloads.WithLabelValues("error")

	volumes := []string{"cache", "media", "unknown"}
	for _, op := range []string{"stat", "open", "write", "rename"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
