// Package middleware provides the HTTP middleware wrapped around the album
// router.
//
// It includes:
//   - CORS handling for a frontend served from another origin
//   - Request logging in W3C Extended Log Format through the zap logger
//   - Prometheus request metrics with id-free path labels
//   - Response compression (gzip) for JSON and text responses
package middleware
