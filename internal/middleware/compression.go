package middleware

import (
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, worth compressing
	MinSize int
	// Level is the gzip level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// Types lists the media types that are compressed
	Types []string
	// SkipPrefixes lists request paths passed through untouched
	SkipPrefixes []string
}

// DefaultCompressionConfig compresses API JSON and frontend assets. Uploaded
// photos and videos are already compressed and are skipped.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		Types: []string{
			"application/json",
			"application/javascript",
			"text/javascript",
			"text/html",
			"text/css",
			"text/plain",
			"image/svg+xml",
		},
		SkipPrefixes: []string{"/uploads/"},
	}
}

var gzipPools sync.Map // level -> *sync.Pool

func gzipPool(level int) *sync.Pool {
	if p, ok := gzipPools.Load(level); ok {
		return p.(*sync.Pool)
	}
	p, _ := gzipPools.LoadOrStore(level, &sync.Pool{
		New: func() interface{} {
			zw, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				zw, _ = gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			}
			return zw
		},
	})
	return p.(*sync.Pool)
}

// compressWriter holds back the start of a response until it has seen
// MinSize bytes (or the handler returns), then commits to gzip or identity.
type compressWriter struct {
	http.ResponseWriter
	config  CompressionConfig
	status  int
	pending []byte
	decided bool
	zw      *gzip.Writer
}

func (c *compressWriter) WriteHeader(status int) {
	if c.decided || c.status != 0 {
		return
	}
	c.status = status
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if c.decided {
		if c.zw != nil {
			return c.zw.Write(p)
		}
		return c.ResponseWriter.Write(p)
	}

	c.pending = append(c.pending, p...)
	if len(c.pending) > c.config.MinSize {
		if err := c.decide(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (c *compressWriter) compressible() bool {
	mediaType, _, err := mime.ParseMediaType(c.Header().Get("Content-Type"))
	if err != nil {
		return false
	}
	for _, t := range c.config.Types {
		if mediaType == t {
			return true
		}
	}
	return false
}

// decide sends the headers and the pending bytes. It runs once.
func (c *compressWriter) decide() error {
	c.decided = true
	if c.status == 0 {
		c.status = http.StatusOK
	}

	h := c.Header()
	if len(c.pending) >= c.config.MinSize && h.Get("Content-Encoding") == "" && c.compressible() {
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")

		c.zw = gzipPool(c.config.Level).Get().(*gzip.Writer)
		c.zw.Reset(c.ResponseWriter)
	}

	c.ResponseWriter.WriteHeader(c.status)

	pending := c.pending
	c.pending = nil
	if len(pending) == 0 {
		return nil
	}
	if c.zw != nil {
		_, err := c.zw.Write(pending)
		return err
	}
	_, err := c.ResponseWriter.Write(pending)
	return err
}

// Close commits any held-back response and recycles the gzip writer
func (c *compressWriter) Close() error {
	var err error
	if !c.decided {
		err = c.decide()
	}
	if c.zw == nil {
		return err
	}
	if cerr := c.zw.Close(); err == nil {
		err = cerr
	}
	gzipPool(c.config.Level).Put(c.zw)
	c.zw = nil
	return err
}

// Flush implements http.Flusher
func (c *compressWriter) Flush() {
	if !c.decided {
		_ = c.decide()
	}
	if c.zw != nil {
		_ = c.zw.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// Compression returns a middleware that gzips compressible responses
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Range responses must keep their byte offsets
			if !acceptsGzip(r) || r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}
			for _, prefix := range config.SkipPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			cw := &compressWriter{ResponseWriter: w, config: config}
			defer cw.Close()
			next.ServeHTTP(cw, r)
		})
	}
}
