package upload

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// maxNameRunes bounds the sanitized original name embedded in a filename.
	maxNameRunes = 20
	// maxExtLen bounds the extension, without its dot.
	maxExtLen = 10
)

// sanitizeName keeps ASCII letters, digits, CJK ideographs, '_' and '-';
// every other rune becomes '_'. The result is cut to maxNameRunes runes.
func sanitizeName(name string) string {
	var b strings.Builder
	count := 0
	for _, r := range name {
		if count == maxNameRunes {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x4E00 && r <= 0x9FA5:
			b.WriteRune(r)
		case r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		count++
	}
	return b.String()
}

// sanitizeExt keeps only ASCII letters and digits of an extension, cut to
// maxExtLen. An extension with nothing left is dropped.
func sanitizeExt(ext string) string {
	var b strings.Builder
	for _, r := range strings.TrimPrefix(ext, ".") {
		if b.Len() == maxExtLen {
			break
		}
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}

// GenerateFilename builds YYYYMMDD_HHMMSS_<name>_<8 hex><ext> for an
// uploaded file, keeping the original extension once sanitized.
func GenerateFilename(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.Format("20060102_150405") + "_" + sanitizeName(stem) + "_" + suffix + sanitizeExt(ext)
}

// ThumbnailName returns the thumbnail filename for a stored file.
func ThumbnailName(filename string) string {
	return "thumb_" + strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
}
