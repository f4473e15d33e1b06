package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, category := range []string{"image", "grid"} {
		IndexImagesTotal.WithLabelValues(category)
	}

	for _, op := range []string{"add", "remove", "update"} {
		IndexMutationsTotal.WithLabelValues(op)
	}

	for _, kind := range []string{"missing", "stale", "modified"} {
		IndexReconcileTotal.WithLabelValues(kind)
	}

	for _, event := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatcherEventsTotal.WithLabelValues(event)
	}

	for _, result := range []string{"ok", "not_png", "malformed", "error"} {
		MetadataExtractionsTotal.WithLabelValues(result)
	}

	volumes := []string{"images", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}
}
