package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_album_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_album_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_auth_failures_total",
			Help: "Requests rejected by the auth middleware, by code",
		},
		[]string{"code"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_album_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBPreparedStatements = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_album_db_prepared_statements",
			Help: "Number of compiled statements held in the statement cache",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "family_album_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	DBRecoveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "family_album_db_recoveries_total",
			Help: "Number of times an unreadable database file was set aside and recreated",
		},
	)
)

// Upload metrics
var (
	UploadFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_upload_files_total",
			Help: "Uploaded files by media type and status",
		},
		[]string{"type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_upload_bytes_total",
			Help: "Bytes received through uploads by media type",
		},
		[]string{"type"},
	)

	UploadRequestsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_upload_requests_rejected_total",
			Help: "Upload requests rejected before any file was written, by reason",
		},
		[]string{"reason"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_thumbnail_generations_total",
			Help: "Total number of thumbnail generations by backend and status",
		},
		[]string{"backend", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_album_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)
)

// Object storage metrics
var (
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_album_storage_operations_total",
			Help: "Object storage operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_album_storage_operation_duration_seconds",
			Help:    "Object storage operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// Album content metrics
var (
	MediaItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "family_album_media_items",
			Help: "Number of media items by type",
		},
		[]string{"type"},
	)

	TagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_album_tags",
			Help: "Number of tags",
		},
	)

	MemosTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_album_memos",
			Help: "Number of memos",
		},
	)

	CommentsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_album_comments",
			Help: "Number of comments",
		},
	)

	UsersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_album_users",
			Help: "Number of registered users",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "family_album_app_info",
			Help: "Application version information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
