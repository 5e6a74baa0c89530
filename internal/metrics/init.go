package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, code := range []string{"UNAUTHORIZED", "USER_NOT_FOUND", "AUTH_ERROR", "INVALID_CREDENTIALS"} {
		AuthFailuresTotal.WithLabelValues(code)
	}

	for _, t := range []string{"image", "video"} {
		MediaItemsTotal.WithLabelValues(t)
		UploadBytesTotal.WithLabelValues(t)
		for _, status := range []string{"success", "error"} {
			UploadFilesTotal.WithLabelValues(t, status)
		}
	}

	for _, reason := range []string{"too_many_files", "too_large", "mime_type", "no_files", "malformed"} {
		UploadRequestsRejected.WithLabelValues(reason)
	}

	for _, backend := range []string{"vips", "imaging"} {
		ThumbnailGenerationDuration.WithLabelValues(backend)
		ThumbnailGenerationsTotal.WithLabelValues(backend, "success")
		ThumbnailGenerationsTotal.WithLabelValues(backend, "error")
	}

	for _, op := range []string{"put", "remove", "presign"} {
		StorageOperationDuration.WithLabelValues(op)
		StorageOperationsTotal.WithLabelValues(op, "success")
		StorageOperationsTotal.WithLabelValues(op, "error")
	}
}
