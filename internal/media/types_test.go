package media

import "testing"

func TestIsAllowedMIME(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/gif", true},
		{"image/webp", true},
		{"video/mp4", true},
		{"video/webm", true},
		{"video/quicktime", true},
		{"IMAGE/JPEG", true},
		{"image/png; charset=binary", true},
		{"image/bmp", false},
		{"application/pdf", false},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := IsAllowedMIME(tt.mime); got != tt.want {
				t.Errorf("IsAllowedMIME(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		mime string
		want FileType
	}{
		{"image/jpeg", FileTypeImage},
		{"image/webp", FileTypeImage},
		{"video/mp4", FileTypeVideo},
		{"video/quicktime", FileTypeVideo},
	}

	for _, tt := range tests {
		if got := Classify(tt.mime); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestAllowedMIMETypes(t *testing.T) {
	types := AllowedMIMETypes()
	if len(types) != 7 {
		t.Fatalf("expected 7 allowed types, got %d", len(types))
	}
	for _, mt := range types {
		if !IsAllowedMIME(mt) {
			t.Errorf("listed type %q is not allowed", mt)
		}
	}
}
