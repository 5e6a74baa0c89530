package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	msgMediaNotFound = "媒体文件不存在"
)

// Pagination describes one page of a media listing
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// MediaListResponse is the body of GET /api/media
type MediaListResponse struct {
	Success    bool                 `json:"success"`
	Data       []database.MediaItem `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// TimelineResponse is the body of GET /api/media/timeline
type TimelineResponse struct {
	Success bool                 `json:"success"`
	Data    []database.MediaItem `json:"data"`
	Total   int                  `json:"total"`
}

// MediaTagsRequest is the body of POST /api/media/{id}/tags
type MediaTagsRequest struct {
	TagIDs []FlexibleID `json:"tagIds"`
}

// present rewrites stored paths into client URLs.
func (h *Handlers) present(ctx context.Context, item *database.MediaItem) {
	item.FilePath = storage.Resolve(ctx, h.store, item.FilePath)
	if item.ThumbnailPath != nil {
		thumb := storage.Resolve(ctx, h.store, *item.ThumbnailPath)
		item.ThumbnailPath = &thumb
	}
	if item.Tags == nil {
		item.Tags = []database.Tag{}
	}
}

func (h *Handlers) presentAll(ctx context.Context, items []database.MediaItem) []database.MediaItem {
	if items == nil {
		return []database.MediaItem{}
	}
	for i := range items {
		h.present(ctx, &items[i])
	}
	return items
}

// ListMedia returns a filtered page of media items
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := database.MediaFilter{
		Page:     page,
		PageSize: pageSize,
		FileType: r.URL.Query().Get("fileType"),
	}
	if tagID, err := strconv.ParseInt(r.URL.Query().Get("tagId"), 10, 64); err == nil && tagID > 0 {
		filter.TagID = tagID
	}

	result, err := h.db.ListMedia(r.Context(), filter)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	totalPages := (result.Total + int64(pageSize) - 1) / int64(pageSize)
	writeJSON(w, http.StatusOK, MediaListResponse{
		Success: true,
		Data:    h.presentAll(r.Context(), result.Items),
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      result.Total,
			TotalPages: totalPages,
		},
	})
}

// Timeline returns every media item, newest first
func (h *Handlers) Timeline(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.Timeline(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	items = h.presentAll(r.Context(), items)
	writeJSON(w, http.StatusOK, TimelineResponse{Success: true, Data: items, Total: len(items)})
}

// GetMedia returns one media item
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadMedia(w, r, "id")
	if !ok {
		return
	}
	h.present(r.Context(), item)
	writeData(w, item)
}

// loadMedia fetches the media item named by a route variable, answering
// 404 or 500 itself when it cannot.
func (h *Handlers) loadMedia(w http.ResponseWriter, r *http.Request, param string) (*database.MediaItem, bool) {
	id, ok := pathID(r, param)
	if !ok {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return nil, false
	}

	item, err := h.db.GetMedia(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return nil, false
	}
	if err != nil {
		writeInternalError(w, r, err)
		return nil, false
	}
	return item, true
}

// DeleteMedia removes a media item and, best effort, its files
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadMedia(w, r, "id")
	if !ok {
		return
	}

	err := h.db.DeleteMedia(r.Context(), item.ID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	h.removeStored(r.Context(), item.FilePath)
	if item.ThumbnailPath != nil {
		h.removeStored(r.Context(), *item.ThumbnailPath)
	}

	logging.Infow("Media deleted", "id", item.ID, "user", callerID(r.Context()))
	writeMessage(w, "删除成功", nil)
}

// removeStored deletes a local file or remote object. Failures are logged.
func (h *Handlers) removeStored(ctx context.Context, stored string) {
	if storage.IsLocal(stored) {
		path, ok := h.localPath(stored)
		if !ok {
			logging.Warn("Refusing to delete path outside upload directory: %s", stored)
			return
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to delete file %s: %v", path, err)
		}
		return
	}

	key, ok := storage.ObjectKey(stored)
	if !ok || !h.store.Enabled() {
		return
	}
	if err := h.store.Remove(ctx, key); err != nil {
		logging.Warn("Failed to delete object %s: %v", key, err)
	}
}

// localPath maps a /uploads/... path to a file inside the upload directory.
func (h *Handlers) localPath(stored string) (string, bool) {
	rel := strings.TrimPrefix(stored, storage.LocalPrefix)
	path := filepath.Join(h.uploadDir, filepath.FromSlash(rel))
	root := filepath.Clean(h.uploadDir) + string(filepath.Separator)
	return path, strings.HasPrefix(path, root)
}

// AddMediaTags attaches tags to a media item
func (h *Handlers) AddMediaTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return
	}

	var req MediaTagsRequest
	if err := decodeJSON(r, &req); err != nil || len(req.TagIDs) == 0 {
		writeError(w, http.StatusBadRequest, "标签ID数组不能为空")
		return
	}

	if _, err := h.db.GetMedia(r.Context(), id); errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return
	} else if err != nil {
		writeInternalError(w, r, err)
		return
	}

	added, err := h.db.AddTagsToMedia(r.Context(), id, flexibleIDs(req.TagIDs))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "成功添加 "+strconv.FormatInt(added, 10)+" 个标签", map[string]int64{"addedCount": added})
}

// RemoveMediaTag detaches one tag from a media item
func (h *Handlers) RemoveMediaTag(w http.ResponseWriter, r *http.Request) {
	mediaID, ok1 := pathID(r, "id")
	tagID, ok2 := pathID(r, "tagId")
	if !ok1 || !ok2 {
		writeError(w, http.StatusNotFound, "标签关联不存在")
		return
	}

	err := h.db.RemoveTagFromMedia(r.Context(), mediaID, tagID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "标签关联不存在")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "删除标签成功", nil)
}
