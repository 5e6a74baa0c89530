// Package handlers implements the album's HTTP API.
//
// Every endpoint lives under /api and answers with a JSON envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": "...", "code": "..."}
//
// Mutating endpoints run behind [Handlers.RequireAuth], which identifies the
// caller by the x-user-id header, a userId body field or a userId query
// parameter. There are no sessions or tokens.
//
// Media rows store either a local /uploads/... path or an object storage key.
// Handlers resolve both into fetchable URLs before responding, signing them
// when the bucket is private.
package handlers
