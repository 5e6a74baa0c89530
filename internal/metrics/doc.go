// Package metrics provides Prometheus instrumentation for the family album
// server. All metrics are prefixed with "family_album_".
//
// # Metric Categories
//
// HTTP: request counts, durations, in-flight requests and auth rejections.
//
// Database: query counts and durations by operation, statement cache size,
// database file sizes and the number of corrupt-file recoveries.
//
// Uploads: files and bytes received, and requests rejected before any file
// was written.
//
// Thumbnails: generations and durations per backend (vips or imaging).
//
// Object storage: put/remove/presign counts and durations.
//
// Album content: gauges for media items, tags, memos, comments and users,
// refreshed periodically by a Collector.
package metrics
