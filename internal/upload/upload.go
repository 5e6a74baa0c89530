package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/media"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/storage"
)

const (
	// DefaultMaxFiles is the per-request file limit.
	DefaultMaxFiles = 10
	// DefaultMaxFileSize is the per-file size limit in bytes.
	DefaultMaxFileSize int64 = 50 * 1024 * 1024

	thumbnailDir = "thumbnails"
)

// ErrValidation is wrapped by every request validation failure.
var ErrValidation = errors.New("invalid upload")

// ValidationError rejects a whole upload request. Reason is a short label
// used for metrics; Message is shown to the client.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// MediaStore is the part of the database the uploader writes to.
type MediaStore interface {
	CreateMedia(ctx context.Context, m database.NewMedia) (int64, error)
	AddTagsToMedia(ctx context.Context, mediaID int64, tagIDs []int64) (int64, error)
	GetMedia(ctx context.Context, id int64) (*database.MediaItem, error)
}

// Thumbnailer writes a thumbnail of src to dst.
type Thumbnailer interface {
	Generate(src, dst string) error
}

// Config holds upload limits and the local upload directory.
type Config struct {
	Dir         string
	MaxFiles    int
	MaxFileSize int64
}

// Result is the outcome of one uploaded file.
type Result struct {
	OriginalName string              `json:"originalName"`
	Success      bool                `json:"success"`
	Media        *database.MediaItem `json:"media,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Service processes multipart uploads.
type Service struct {
	db     MediaStore
	store  storage.ObjectStore
	thumbs Thumbnailer
	cfg    Config
	now    func() time.Time
}

// New creates the upload service and the local upload directories.
func New(db MediaStore, store storage.ObjectStore, thumbs Thumbnailer, cfg Config) (*Service, error) {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if store == nil {
		store = storage.Disabled{}
	}
	if thumbs == nil {
		thumbs = media.NewThumbnailGenerator(media.DefaultThumbnailSize)
	}

	if err := os.MkdirAll(filepath.Join(cfg.Dir, thumbnailDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &Service{db: db, store: store, thumbs: thumbs, cfg: cfg, now: time.Now}, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Validate checks the whole request before anything is written.
func (s *Service) Validate(files []*multipart.FileHeader) error {
	var err *ValidationError
	switch {
	case len(files) == 0:
		err = &ValidationError{Reason: "no_files", Message: "没有上传文件"}
	case len(files) > s.cfg.MaxFiles:
		err = &ValidationError{
			Reason:  "too_many_files",
			Message: fmt.Sprintf("一次最多上传 %d 个文件", s.cfg.MaxFiles),
		}
	default:
		for _, fh := range files {
			if !media.IsAllowedMIME(fh.Header.Get("Content-Type")) {
				err = &ValidationError{
					Reason:  "mime_type",
					Message: fmt.Sprintf("不支持的文件类型: %s", fh.Filename),
				}
				break
			}
			if fh.Size > s.cfg.MaxFileSize {
				err = &ValidationError{
					Reason:  "too_large",
					Message: fmt.Sprintf("文件大小不能超过 %dMB: %s", s.cfg.MaxFileSize/(1024*1024), fh.Filename),
				}
				break
			}
		}
	}

	if err != nil {
		metrics.UploadRequestsRejected.WithLabelValues(err.Reason).Inc()
		return err
	}
	return nil
}

// Process stores each file in order. Every file yields a Result; earlier
// files stay committed when a later one fails.
func (s *Service) Process(ctx context.Context, userID int64, files []*multipart.FileHeader, tagIDs []int64, description string) []Result {
	results := make([]Result, 0, len(files))
	for _, fh := range files {
		result := Result{OriginalName: fh.Filename}

		if err := ctx.Err(); err != nil {
			result.Error = "上传已取消"
			results = append(results, result)
			continue
		}

		item, err := s.processFile(ctx, userID, fh, tagIDs, description)
		if err != nil {
			logging.Errorw("Upload failed", "file", fh.Filename, "user", userID, "error", err)
			result.Error = "文件处理失败"
		} else {
			result.Success = true
			result.Media = item
		}
		results = append(results, result)
	}
	return results
}

// stored tracks where the pieces of one upload ended up.
type stored struct {
	localFile  string
	localThumb string
	filePath   string
	thumbPath  *string
}

func (s *Service) processFile(ctx context.Context, userID int64, fh *multipart.FileHeader, tagIDs []int64, description string) (item *database.MediaItem, err error) {
	mimeType := fh.Header.Get("Content-Type")
	fileType := string(media.Classify(mimeType))

	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		} else {
			metrics.UploadBytesTotal.WithLabelValues(fileType).Add(float64(fh.Size))
		}
		metrics.UploadFilesTotal.WithLabelValues(fileType, status).Inc()
	}()

	filename := GenerateFilename(fh.Filename, s.now())
	st := stored{
		localFile: filepath.Join(s.cfg.Dir, filename),
		filePath:  storage.LocalPrefix + filename,
	}

	if err := saveFile(fh, st.localFile); err != nil {
		return nil, err
	}

	var width, height *int64
	if fileType == string(media.FileTypeImage) {
		if dims, err := media.GetImageDimensions(st.localFile); err != nil {
			logging.Warn("Failed to read dimensions of %s: %v", filename, err)
		} else {
			w, h := int64(dims.Width), int64(dims.Height)
			width, height = &w, &h
		}

		thumbName := ThumbnailName(filename)
		thumbFile := filepath.Join(s.cfg.Dir, thumbnailDir, thumbName)
		if err := s.thumbs.Generate(st.localFile, thumbFile); err != nil {
			logging.Warn("Failed to generate thumbnail for %s: %v", filename, err)
		} else {
			st.localThumb = thumbFile
			p := storage.LocalPrefix + thumbnailDir + "/" + thumbName
			st.thumbPath = &p
		}
	}

	if s.store.Enabled() {
		s.pushToStore(ctx, filename, mimeType, &st)
	}

	id, err := s.db.CreateMedia(ctx, database.NewMedia{
		UserID:        userID,
		Filename:      filename,
		OriginalName:  fh.Filename,
		FilePath:      st.filePath,
		ThumbnailPath: st.thumbPath,
		FileType:      fileType,
		MimeType:      mimeType,
		FileSize:      fh.Size,
		Width:         width,
		Height:        height,
		Description:   description,
	})
	if err != nil {
		s.discard(ctx, st)
		return nil, fmt.Errorf("failed to record media: %w", err)
	}

	if len(tagIDs) > 0 {
		if _, err := s.db.AddTagsToMedia(ctx, id, tagIDs); err != nil {
			logging.Warn("Failed to attach tags to media %d: %v", id, err)
		}
	}

	logging.Infow("Media uploaded", "id", id, "file", filename, "type", fileType, "size", fh.Size, "remote", !storage.IsLocal(st.filePath))

	return s.db.GetMedia(ctx, id)
}

// pushToStore uploads the file and its thumbnail. Local copies are removed
// only after their upload succeeds; a failed main upload keeps everything
// local.
func (s *Service) pushToStore(ctx context.Context, filename, mimeType string, st *stored) {
	key := storage.KeyPrefix + filename
	if err := s.store.PutFile(ctx, key, st.localFile, mimeType); err != nil {
		logging.Error("Object storage upload failed for %s, keeping local copy: %v", filename, err)
		return
	}
	st.filePath = key
	removeLocal(st.localFile)
	st.localFile = ""

	if st.localThumb == "" {
		return
	}
	thumbKey := storage.KeyPrefix + thumbnailDir + "/" + filepath.Base(st.localThumb)
	if err := s.store.PutFile(ctx, thumbKey, st.localThumb, "image/jpeg"); err != nil {
		logging.Error("Object storage upload failed for thumbnail of %s, keeping local copy: %v", filename, err)
		return
	}
	st.thumbPath = &thumbKey
	removeLocal(st.localThumb)
	st.localThumb = ""
}

// discard removes everything written for a file whose row could not be
// recorded.
func (s *Service) discard(ctx context.Context, st stored) {
	removeLocal(st.localFile)
	removeLocal(st.localThumb)
	for _, p := range []string{st.filePath, derefString(st.thumbPath)} {
		if key, ok := storage.ObjectKey(p); ok && s.store.Enabled() {
			if err := s.store.Remove(ctx, key); err != nil {
				logging.Warn("Failed to remove orphaned object %s: %v", key, err)
			}
		}
	}
}

func saveFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to save file: %w", err)
	}
	return out.Close()
}

func removeLocal(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove local file %s: %v", path, err)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
