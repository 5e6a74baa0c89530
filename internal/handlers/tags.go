package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
)

const (
	msgTagNotFound = "标签不存在"
	msgTagExists   = "标签名称已存在"
)

// TagRequest is the body of tag create and update requests
type TagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// trimmed returns the trimmed value of an optional field, or nil when it is
// absent or blank.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// ListTags returns all tags with their media counts, ordered by name
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if tags == nil {
		tags = []database.TagSummary{}
	}
	writeData(w, tags)
}

// CreateTag adds a tag
func (h *Handlers) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求格式无效")
		return
	}

	name := trimmed(req.Name)
	if name == nil {
		writeError(w, http.StatusBadRequest, "标签名称不能为空")
		return
	}
	color := ""
	if c := trimmed(req.Color); c != nil {
		color = *c
	}

	tag, err := h.db.CreateTag(r.Context(), *name, color)
	if errors.Is(err, database.ErrAlreadyExists) {
		writeError(w, http.StatusBadRequest, msgTagExists)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "创建成功", tag)
}

// UpdateTag renames or recolors a tag
func (h *Handlers) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgTagNotFound)
		return
	}

	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求格式无效")
		return
	}

	tag, err := h.db.UpdateTag(r.Context(), id, trimmed(req.Name), trimmed(req.Color))
	switch {
	case errors.Is(err, database.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, msgTagExists)
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, msgTagNotFound)
	case err != nil:
		writeInternalError(w, r, err)
	default:
		writeMessage(w, "更新成功", tag)
	}
}

// DeleteTag removes a tag and its media associations
func (h *Handlers) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgTagNotFound)
		return
	}

	err := h.db.DeleteTag(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgTagNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "删除成功", nil)
}
