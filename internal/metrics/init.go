package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(extensions []string) {
	for _, mode := range []string{"buffered", "streaming"} {
		for _, status := range []string{"success", "disconnect", "error"} {
			StreamsTotal.WithLabelValues(mode, status)
		}
		StreamBytesTotal.WithLabelValues(mode)
		StreamDuration.WithLabelValues(mode)
	}

	for _, ext := range extensions {
		DecoderUnavailableTotal.WithLabelValues(ext)
	}

	for _, source := range []string{"cache", "tags", "fallback"} {
		LibraryScanFilesTotal.WithLabelValues(source)
	}

	for _, op := range []string{"initialize_schema", "load_cache", "save_tracks", "delete_missing"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemStaleErrorsTotal.WithLabelValues(op)
		FilesystemRetriesTotal.WithLabelValues(op, "success")
		FilesystemRetriesTotal.WithLabelValues(op, "failure")
	}

	for _, status := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}
}
