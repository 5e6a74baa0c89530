package media

import "strings"

// FileType represents the kind of an uploaded media file.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
)

// allowedMIMETypes lists the upload formats accepted by the album.
var allowedMIMETypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// normalizeMIME strips parameters and lowercases a Content-Type value.
func normalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// IsAllowedMIME reports whether uploads of this MIME type are accepted.
func IsAllowedMIME(mimeType string) bool {
	return allowedMIMETypes[normalizeMIME(mimeType)]
}

// AllowedMIMETypes returns the accepted MIME types.
func AllowedMIMETypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	return types
}

// Classify maps a MIME type to image or video by its prefix.
func Classify(mimeType string) FileType {
	if strings.HasPrefix(normalizeMIME(mimeType), "image/") {
		return FileTypeImage
	}
	return FileTypeVideo
}
