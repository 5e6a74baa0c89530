package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/media"
)

// testFile describes one part of a multipart upload.
type testFile struct {
	name        string
	contentType string
	content     []byte
}

// buildFiles encodes files as a multipart form and parses them back into
// file headers the way net/http does.
func buildFiles(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("part.Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart close error = %v", err)
	}

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("ReadForm() error = %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

// pngBytes returns an encoded PNG of the given size.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 144, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// recordingStore is an object store that remembers what was put.
type recordingStore struct {
	mu      sync.Mutex
	enabled bool
	failOn  string
	puts    map[string][]byte
	removed []string
}

func newRecordingStore(enabled bool) *recordingStore {
	return &recordingStore{enabled: enabled, puts: make(map[string][]byte)}
}

func (r *recordingStore) Enabled() bool { return r.enabled }

func (r *recordingStore) PutFile(_ context.Context, key, localPath, _ string) error {
	if r.failOn != "" && strings.Contains(key, r.failOn) {
		return errors.New("simulated upload failure")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts[key] = data
	return nil
}

func (r *recordingStore) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, key)
	return nil
}

func (r *recordingStore) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

// setupService creates a database, an upload directory and a service.
func setupService(t *testing.T, store *recordingStore) (*Service, *database.Database, int64, func()) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(context.Background(), filepath.Join(dir, "test.db"), database.Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}

	user, err := db.GetUserByUsername(context.Background(), database.SeedUsernames[0])
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}

	svc, err := New(db, store, media.NewThumbnailGenerator(300), Config{Dir: filepath.Join(dir, "uploads")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return svc, db, user.ID, func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	svc, _, _, cleanup := setupService(t, newRecordingStore(false))
	defer cleanup()

	jpeg := testFile{name: "a.jpg", contentType: "image/jpeg", content: []byte("x")}

	tooMany := make([]testFile, 11)
	for i := range tooMany {
		tooMany[i] = jpeg
	}

	tests := []struct {
		name       string
		files      []*multipart.FileHeader
		wantReason string
	}{
		{"no files", nil, "no_files"},
		{"too many files", buildFiles(t, tooMany...), "too_many_files"},
		{"unsupported type", buildFiles(t, jpeg, testFile{name: "doc.pdf", contentType: "application/pdf", content: []byte("%PDF")}), "mime_type"},
		{"ten files allowed", buildFiles(t, tooMany[:10]...), ""},
		{"video allowed", buildFiles(t, testFile{name: "v.mov", contentType: "video/quicktime", content: []byte("moov")}), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Validate(tt.files)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", verr.Reason, tt.wantReason)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("validation error should wrap ErrValidation")
			}
		})
	}
}

func TestValidateFileSize(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(nil, nil, nil, Config{Dir: dir, MaxFileSize: 10})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	small := buildFiles(t, testFile{name: "s.png", contentType: "image/png", content: []byte("0123456789")})
	if err := svc.Validate(small); err != nil {
		t.Errorf("file at the limit rejected: %v", err)
	}

	large := buildFiles(t, testFile{name: "l.png", contentType: "image/png", content: []byte("0123456789A")})
	var verr *ValidationError
	if err := svc.Validate(large); !errors.As(err, &verr) || verr.Reason != "too_large" {
		t.Errorf("Validate() error = %v, want too_large", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(nil, nil, nil, Config{Dir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := svc.Config()
	if cfg.MaxFiles != DefaultMaxFiles || cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if info, err := os.Stat(filepath.Join(dir, "thumbnails")); err != nil || !info.IsDir() {
		t.Errorf("thumbnails directory not created: %v", err)
	}
}

// =============================================================================
// Processing
// =============================================================================

func TestProcessImageLocal(t *testing.T) {
	svc, db, userID, cleanup := setupService(t, newRecordingStore(false))
	defer cleanup()
	ctx := context.Background()

	tag, err := db.CreateTag(ctx, "旅游", "")
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}

	content := pngBytes(t, 600, 400)
	files := buildFiles(t, testFile{name: "海边 sunset.png", contentType: "image/png", content: content})

	results := svc.Process(ctx, userID, files, []int64{tag.ID, tag.ID, 9999}, "夏天")
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("Process() = %+v, want one success", results)
	}

	item := results[0].Media
	if item.OriginalName != "海边 sunset.png" {
		t.Errorf("OriginalName = %q", item.OriginalName)
	}
	if item.FileType != "image" || item.MimeType != "image/png" {
		t.Errorf("type = %s/%s", item.FileType, item.MimeType)
	}
	if item.FileSize != int64(len(content)) {
		t.Errorf("FileSize = %d, want %d", item.FileSize, len(content))
	}
	if item.Width == nil || *item.Width != 600 || item.Height == nil || *item.Height != 400 {
		t.Errorf("dimensions = %v x %v, want 600x400", item.Width, item.Height)
	}
	if item.Description != "夏天" {
		t.Errorf("Description = %q", item.Description)
	}
	if item.FilePath != "/uploads/"+item.Filename {
		t.Errorf("FilePath = %q", item.FilePath)
	}
	if !strings.Contains(item.Filename, "海边_sunset") {
		t.Errorf("Filename = %q, expected sanitized original name", item.Filename)
	}
	if len(item.Tags) != 1 || item.Tags[0].ID != tag.ID {
		t.Errorf("Tags = %+v, want only %d", item.Tags, tag.ID)
	}

	if item.ThumbnailPath == nil || *item.ThumbnailPath != "/uploads/thumbnails/"+ThumbnailName(item.Filename) {
		t.Fatalf("ThumbnailPath = %v", item.ThumbnailPath)
	}

	dir := svc.Config().Dir
	if _, err := os.Stat(filepath.Join(dir, item.Filename)); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
	dims, err := media.GetImageDimensions(filepath.Join(dir, "thumbnails", ThumbnailName(item.Filename)))
	if err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("thumbnail = %dx%d, want 300x200", dims.Width, dims.Height)
	}
}

func TestProcessVideoHasNoThumbnail(t *testing.T) {
	svc, _, userID, cleanup := setupService(t, newRecordingStore(false))
	defer cleanup()

	files := buildFiles(t, testFile{name: "clip.mp4", contentType: "video/mp4", content: []byte("fake video bytes")})
	results := svc.Process(context.Background(), userID, files, nil, "")
	if !results[0].Success {
		t.Fatalf("Process() = %+v", results)
	}

	item := results[0].Media
	if item.FileType != "video" {
		t.Errorf("FileType = %q, want video", item.FileType)
	}
	if item.ThumbnailPath != nil || item.Width != nil || item.Height != nil {
		t.Errorf("video should have no thumbnail or dimensions: %+v", item)
	}
}

func TestProcessThumbnailFailureIsNotFatal(t *testing.T) {
	svc, _, userID, cleanup := setupService(t, newRecordingStore(false))
	defer cleanup()

	files := buildFiles(t, testFile{name: "broken.png", contentType: "image/png", content: []byte("not really a png")})
	results := svc.Process(context.Background(), userID, files, nil, "")
	if !results[0].Success {
		t.Fatalf("Process() = %+v, want success without thumbnail", results)
	}
	if results[0].Media.ThumbnailPath != nil {
		t.Errorf("ThumbnailPath = %v, want nil", *results[0].Media.ThumbnailPath)
	}
}

func TestProcessUploadsToObjectStore(t *testing.T) {
	store := newRecordingStore(true)
	svc, _, userID, cleanup := setupService(t, store)
	defer cleanup()

	content := pngBytes(t, 50, 50)
	files := buildFiles(t, testFile{name: "cat.png", contentType: "image/png", content: content})
	results := svc.Process(context.Background(), userID, files, nil, "")
	if !results[0].Success {
		t.Fatalf("Process() = %+v", results)
	}

	item := results[0].Media
	wantKey := "uploads/" + item.Filename
	wantThumb := "uploads/thumbnails/" + ThumbnailName(item.Filename)
	if item.FilePath != wantKey {
		t.Errorf("FilePath = %q, want %q", item.FilePath, wantKey)
	}
	if item.ThumbnailPath == nil || *item.ThumbnailPath != wantThumb {
		t.Errorf("ThumbnailPath = %v, want %q", item.ThumbnailPath, wantThumb)
	}
	if !bytes.Equal(store.puts[wantKey], content) {
		t.Error("object store did not receive the original bytes")
	}
	if _, ok := store.puts[wantThumb]; !ok {
		t.Error("thumbnail was not uploaded")
	}

	dir := svc.Config().Dir
	if _, err := os.Stat(filepath.Join(dir, item.Filename)); !os.IsNotExist(err) {
		t.Error("local file should be removed after upload")
	}
	if _, err := os.Stat(filepath.Join(dir, "thumbnails", ThumbnailName(item.Filename))); !os.IsNotExist(err) {
		t.Error("local thumbnail should be removed after upload")
	}
}

func TestProcessObjectStoreFailureKeepsLocal(t *testing.T) {
	tests := []struct {
		name          string
		failOn        string
		wantRemote    bool
		wantThumbDisk bool
	}{
		{"main upload fails", "uploads/2", false, true},
		{"thumbnail upload fails", "thumbnails/", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore(true)
			store.failOn = tt.failOn
			svc, _, userID, cleanup := setupService(t, store)
			defer cleanup()

			files := buildFiles(t, testFile{name: "dog.png", contentType: "image/png", content: pngBytes(t, 40, 40)})
			results := svc.Process(context.Background(), userID, files, nil, "")
			if !results[0].Success {
				t.Fatalf("Process() = %+v", results)
			}

			item := results[0].Media
			if gotRemote := item.FilePath == "uploads/"+item.Filename; gotRemote != tt.wantRemote {
				t.Errorf("FilePath = %q, remote = %v, want %v", item.FilePath, gotRemote, tt.wantRemote)
			}
			wantThumb := "/uploads/thumbnails/" + ThumbnailName(item.Filename)
			if item.ThumbnailPath == nil || *item.ThumbnailPath != wantThumb {
				t.Errorf("ThumbnailPath = %v, want local %q", item.ThumbnailPath, wantThumb)
			}

			_, err := os.Stat(filepath.Join(svc.Config().Dir, "thumbnails", ThumbnailName(item.Filename)))
			if (err == nil) != tt.wantThumbDisk {
				t.Errorf("local thumbnail present = %v, want %v", err == nil, tt.wantThumbDisk)
			}
		})
	}
}

func TestProcessMultipleFilesInOrder(t *testing.T) {
	svc, db, userID, cleanup := setupService(t, newRecordingStore(false))
	defer cleanup()
	ctx := context.Background()

	files := buildFiles(t,
		testFile{name: "one.png", contentType: "image/png", content: pngBytes(t, 10, 10)},
		testFile{name: "two.mp4", contentType: "video/mp4", content: []byte("video")},
		testFile{name: "three.gif", contentType: "image/gif", content: []byte("GIF89a")},
	)

	results := svc.Process(ctx, userID, files, nil, "")
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range []string{"one.png", "two.mp4", "three.gif"} {
		if results[i].OriginalName != want || !results[i].Success {
			t.Errorf("results[%d] = %+v, want success for %s", i, results[i], want)
		}
	}

	page, err := db.ListMedia(ctx, database.MediaFilter{})
	if err != nil {
		t.Fatalf("ListMedia() error = %v", err)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
}

func TestProcessCanceledContext(t *testing.T) {
	svc, _, userID, cleanup := setupService(t, newRecordingStore(false))
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := buildFiles(t, testFile{name: "a.png", contentType: "image/png", content: pngBytes(t, 5, 5)})
	results := svc.Process(ctx, userID, files, nil, "")
	if results[0].Success || results[0].Error == "" {
		t.Errorf("Process() with canceled context = %+v, want failure", results[0])
	}
}

func TestProcessRecordFailureDiscardsFiles(t *testing.T) {
	store := newRecordingStore(false)
	svc, _, _, cleanup := setupService(t, store)
	defer cleanup()

	// No user with this id exists, so the insert violates the foreign key.
	files := buildFiles(t, testFile{name: "orphan.png", contentType: "image/png", content: pngBytes(t, 20, 20)})
	results := svc.Process(context.Background(), 424242, files, nil, "")
	if results[0].Success {
		t.Fatalf("Process() = %+v, want failure", results[0])
	}

	entries, err := os.ReadDir(svc.Config().Dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("leftover file after failed insert: %s", e.Name())
		}
	}
	thumbs, _ := os.ReadDir(filepath.Join(svc.Config().Dir, "thumbnails"))
	if len(thumbs) != 0 {
		t.Errorf("leftover thumbnails after failed insert: %d", len(thumbs))
	}
}
