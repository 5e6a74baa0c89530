package storage

import (
	"context"
	"net/url"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
)

// IsLocal reports whether a stored path refers to the local uploads
// directory.
func IsLocal(stored string) bool {
	return strings.HasPrefix(stored, LocalPrefix)
}

// IsAbsoluteURL reports whether a stored path is already a full http(s) URL.
func IsAbsoluteURL(stored string) bool {
	return strings.HasPrefix(stored, "http://") || strings.HasPrefix(stored, "https://")
}

// ObjectKey extracts the object key from a stored path. Keys are returned
// as-is; absolute URLs written by older versions are reduced to their path.
// Local paths have no key.
func ObjectKey(stored string) (string, bool) {
	switch {
	case stored == "" || IsLocal(stored):
		return "", false
	case IsAbsoluteURL(stored):
		u, err := url.Parse(stored)
		if err != nil {
			return "", false
		}
		key := strings.TrimPrefix(u.Path, "/")
		return key, key != ""
	default:
		return strings.TrimPrefix(stored, "/"), true
	}
}

// Resolve turns a stored path into a URL for clients. Local paths are
// returned unchanged. When the store is disabled keys are returned
// unchanged as well. Signing failures fall back to the stored value.
func Resolve(ctx context.Context, store ObjectStore, stored string) string {
	if stored == "" || IsLocal(stored) || store == nil || !store.Enabled() {
		return stored
	}

	key, ok := ObjectKey(stored)
	if !ok {
		return stored
	}

	resolved, err := store.URL(ctx, key)
	if err != nil {
		logging.Warn("Failed to resolve URL for %s: %v", key, err)
		return stored
	}
	return resolved
}
