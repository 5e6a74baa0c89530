// Package storage pushes uploaded files to an S3-compatible object store
// (Tencent COS in production) and turns stored paths into URLs.
//
// Media rows store either a local path under /uploads/ or an object key
// under uploads/. Resolve maps both, plus legacy absolute URLs, to
// something a browser can fetch: local paths are returned unchanged,
// keys become public URLs or time-limited presigned URLs depending on the
// bucket's access type.
package storage
