package media

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

const (
	// DefaultThumbnailSize is the bounding box edge for thumbnails.
	DefaultThumbnailSize = 300
	// ThumbnailQuality is the JPEG quality of generated thumbnails.
	ThumbnailQuality = 80
)

// ThumbnailGenerator writes fit-inside JPEG thumbnails. Images smaller than
// the bounding box are never enlarged.
type ThumbnailGenerator struct {
	size int
}

// NewThumbnailGenerator creates a generator for size x size thumbnails.
func NewThumbnailGenerator(size int) *ThumbnailGenerator {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	return &ThumbnailGenerator{size: size}
}

// Size returns the bounding box edge.
func (t *ThumbnailGenerator) Size() int {
	return t.size
}

// Generate writes a thumbnail of src to dst. libvips is used when it is
// available; imaging is the fallback.
func (t *ThumbnailGenerator) Generate(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	if IsVipsAvailable() {
		start := time.Now()
		err := thumbnailWithVips(src, dst, t.size, ThumbnailQuality)
		observeThumbnail("vips", start, err)
		if err == nil {
			return nil
		}
		logging.Warn("vips thumbnail failed for %s, falling back to imaging: %v", filepath.Base(src), err)
	}

	start := time.Now()
	err := t.generateWithImaging(src, dst)
	observeThumbnail("imaging", start, err)
	return err
}

func (t *ThumbnailGenerator) generateWithImaging(src, dst string) error {
	if format, err := detectFileType(src); err == nil {
		logging.Debug("Thumbnail source %s detected as %s", filepath.Base(src), format)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	thumb := imaging.Fit(img, t.size, t.size, imaging.Lanczos)

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	return os.Rename(tmp, dst)
}

func observeThumbnail(backend string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(backend, status).Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}
