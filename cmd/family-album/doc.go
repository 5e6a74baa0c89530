// Package main is the entry point of the family album server.
//
// The server stores photos and videos uploaded by family members, keeps
// their metadata, tags, memos and comments in SQLite, and serves a JSON API
// under /api for the web frontend.
//
// # Startup
//
//  0. Memory: GOMEMLIMIT derived from MEMORY_LIMIT in containers
//  1. Configuration: .env, config.yaml and environment variables via viper
//  2. Database: opens (or recreates) the SQLite file and seeds the family
//     accounts
//  3. Media: initializes libvips when enabled; thumbnails fall back to a
//     pure Go encoder otherwise
//  4. Object storage: connects to the COS bucket when credentials are set
//  5. HTTP: builds the router, wraps it in CORS, logging, metrics and
//     compression middleware, and starts listening
//
// A second server on METRICS_PORT exposes Prometheus metrics when
// METRICS_ENABLED is true.
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the HTTP server drains for up to 30 seconds, then the
// metrics collector and server stop, libvips shuts down, and the database
// is closed last so its WAL is checkpointed.
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o family-album ./cmd/family-album
package main
