// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] first loads a .env file from the working directory if one
// exists, then reads settings through viper: built-in defaults, an optional
// config.yaml (looked up in CONFIG_DIR and the working directory), and
// environment variables, with later sources taking precedence. Keys in
// config.yaml are the lowercase forms of the variable names below.
//
//   - PORT: HTTP server port (default: 3000)
//   - DATABASE_PATH: SQLite database file (default: ./data/database.sqlite)
//   - UPLOAD_DIR: Local upload directory (default: ./uploads)
//   - STATIC_DIR: Optional frontend directory served at / (default: disabled)
//   - METRICS_ENABLED / METRICS_PORT: Prometheus server (default: true / 9090)
//   - LOG_STATIC_FILES / LOG_HEALTH_CHECKS: Access log noise (default: false)
//   - MAX_UPLOAD_FILES / MAX_UPLOAD_SIZE_MB: Upload limits (default: 10 / 50)
//   - THUMBNAIL_SIZE: Thumbnail bounding box (default: 300)
//   - VIPS_ENABLED: Use libvips for thumbnails when available (default: true)
//   - SEED_PASSWORD: Password kept on the two seed accounts
//   - COS_SECRET_ID, COS_SECRET_KEY, COS_BUCKET_NAME: Object storage credentials
//   - COS_REGION, COS_ENDPOINT, COS_DOMAIN, COS_USE_SSL: Object storage location
//   - COS_ACCESS_TYPE: public or private (private serves presigned URLs)
//   - COS_SIGNED_URL_EXPIRY: Presigned URL lifetime as Go duration (default: 1h)
//
// Secrets are masked when the configuration is logged.
//
// # Directory Setup
//
// The database directory and the upload directory (with its thumbnails
// subdirectory) are created if needed and must be writable. A missing
// STATIC_DIR disables static file serving instead of failing startup.
//
// # Startup Logging
//
// The Log* functions print the sectioned startup and shutdown report.
package startup
