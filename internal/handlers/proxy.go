package handlers

import (
	"net/http"
	"os"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/storage"
)

// ProxyImage redirects to a fetchable URL for a media file. Private
// buckets get a freshly signed URL on every request.
func (h *Handlers) ProxyImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadMedia(w, r, "mediaId")
	if !ok {
		return
	}

	stored := item.FilePath
	switch {
	case storage.IsLocal(stored):
		path, ok := h.localPath(stored)
		if !ok {
			writeError(w, http.StatusNotFound, "文件不存在")
			return
		}
		if _, err := os.Stat(path); err != nil {
			writeError(w, http.StatusNotFound, "文件不存在")
			return
		}
		http.Redirect(w, r, stored, http.StatusFound)

	case h.store.Enabled():
		key, ok := storage.ObjectKey(stored)
		if !ok {
			writeError(w, http.StatusNotFound, "无法获取文件")
			return
		}
		url, err := h.store.URL(r.Context(), key)
		if err != nil {
			logging.Error("Failed to sign URL for %s: %v", key, err)
			writeError(w, http.StatusInternalServerError, "无法生成图片URL")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)

	case storage.IsAbsoluteURL(stored):
		http.Redirect(w, r, stored, http.StatusFound)

	default:
		writeError(w, http.StatusNotFound, "无法获取文件")
	}
}
