package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

// Access types for the bucket.
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

// KeyPrefix is the prefix of every object key written by the uploader.
const KeyPrefix = "uploads/"

// LocalPrefix is the URL prefix of files served from the local uploads
// directory.
const LocalPrefix = "/uploads/"

// ErrDisabled is returned by the no-op store.
var ErrDisabled = errors.New("object storage is not configured")

// ObjectStore is the subset of object storage used by the album.
type ObjectStore interface {
	// Enabled reports whether uploads should go to the remote store.
	Enabled() bool
	// PutFile uploads a local file under key.
	PutFile(ctx context.Context, key, localPath, contentType string) error
	// Remove deletes the object stored under key.
	Remove(ctx context.Context, key string) error
	// URL returns a fetchable URL for key.
	URL(ctx context.Context, key string) (string, error)
}

// Config configures the COS-backed store.
type Config struct {
	SecretID     string
	SecretKey    string
	Region       string
	Bucket       string
	Endpoint     string // defaults to cos.<region>.myqcloud.com
	Domain       string // optional custom/CDN domain for public URLs
	AccessType   string // public or private
	UseSSL       bool
	SignedExpiry time.Duration
}

// Configured reports whether credentials and a bucket are present.
func (c Config) Configured() bool {
	return c.SecretID != "" && c.SecretKey != "" && c.Bucket != ""
}

func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("cos.%s.myqcloud.com", c.Region)
}

// New returns a COS store when cfg is configured and a disabled store
// otherwise.
func New(cfg Config) (ObjectStore, error) {
	if !cfg.Configured() {
		logging.Info("Object storage not configured, uploads stay on local disk")
		return Disabled{}, nil
	}
	return NewCOS(cfg)
}

// COS stores objects in a Tencent COS bucket through its S3-compatible API.
type COS struct {
	client *minio.Client
	cfg    Config
}

// NewCOS creates the minio client for cfg.
func NewCOS(cfg Config) (*COS, error) {
	if cfg.AccessType == "" {
		cfg.AccessType = AccessPublic
	}
	if cfg.SignedExpiry <= 0 {
		cfg.SignedExpiry = time.Hour
	}

	client, err := minio.New(cfg.endpoint(), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.SecretID, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupDNS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage client: %w", err)
	}

	logging.Info("Object storage initialized: bucket=%s endpoint=%s access=%s", cfg.Bucket, cfg.endpoint(), cfg.AccessType)
	return &COS{client: client, cfg: cfg}, nil
}

// Enabled implements ObjectStore.
func (c *COS) Enabled() bool { return true }

// PutFile implements ObjectStore.
func (c *COS) PutFile(ctx context.Context, key, localPath, contentType string) error {
	start := time.Now()
	_, err := c.client.FPutObject(ctx, c.cfg.Bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	observe("put", start, err)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logging.Debug("Uploaded %s to bucket %s", key, c.cfg.Bucket)
	return nil
}

// Remove implements ObjectStore.
func (c *COS) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := c.client.RemoveObject(ctx, c.cfg.Bucket, key, minio.RemoveObjectOptions{})
	observe("remove", start, err)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// URL implements ObjectStore. Public buckets get a plain URL on the custom
// domain (or the bucket host); private buckets get a presigned GET URL.
func (c *COS) URL(ctx context.Context, key string) (string, error) {
	if c.cfg.AccessType != AccessPrivate {
		return c.publicURL(key), nil
	}

	start := time.Now()
	u, err := c.client.PresignedGetObject(ctx, c.cfg.Bucket, key, c.cfg.SignedExpiry, url.Values{})
	observe("presign", start, err)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return u.String(), nil
}

func (c *COS) publicURL(key string) string {
	if c.cfg.Domain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimSuffix(c.cfg.Domain, "/"), key)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.cfg.Bucket, c.cfg.endpoint(), key)
}

func observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	metrics.StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Disabled is the store used when no credentials are configured.
type Disabled struct{}

// Enabled implements ObjectStore.
func (Disabled) Enabled() bool { return false }

// PutFile implements ObjectStore.
func (Disabled) PutFile(context.Context, string, string, string) error { return ErrDisabled }

// Remove implements ObjectStore.
func (Disabled) Remove(context.Context, string) error { return ErrDisabled }

// URL implements ObjectStore.
func (Disabled) URL(context.Context, string) (string, error) { return "", ErrDisabled }
