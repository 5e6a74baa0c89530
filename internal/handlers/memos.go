package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
)

const (
	msgMemoNotFound = "备忘录不存在"
	msgMemoRequired = "标题和内容不能为空"
)

// MemoRequest is the body of memo create and update requests
type MemoRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (m MemoRequest) valid() bool {
	return strings.TrimSpace(m.Title) != "" && strings.TrimSpace(m.Content) != ""
}

// ListMemos returns all memos, most recently updated first
func (h *Handlers) ListMemos(w http.ResponseWriter, r *http.Request) {
	memos, err := h.db.ListMemos(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if memos == nil {
		memos = []database.Memo{}
	}
	writeData(w, memos)
}

// GetMemo returns one memo
func (h *Handlers) GetMemo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgMemoNotFound)
		return
	}

	memo, err := h.db.GetMemo(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMemoNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeData(w, memo)
}

// CreateMemo writes a memo owned by the caller
func (h *Handlers) CreateMemo(w http.ResponseWriter, r *http.Request) {
	var req MemoRequest
	if err := decodeJSON(r, &req); err != nil || !req.valid() {
		writeError(w, http.StatusBadRequest, msgMemoRequired)
		return
	}

	memo, err := h.db.CreateMemo(r.Context(), callerID(r.Context()), req.Title, req.Content)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "创建成功", memo)
}

// UpdateMemo replaces a memo's title and content
func (h *Handlers) UpdateMemo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgMemoNotFound)
		return
	}

	var req MemoRequest
	if err := decodeJSON(r, &req); err != nil || !req.valid() {
		writeError(w, http.StatusBadRequest, msgMemoRequired)
		return
	}

	memo, err := h.db.UpdateMemo(r.Context(), id, req.Title, req.Content)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMemoNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "更新成功", memo)
}

// DeleteMemo removes a memo
func (h *Handlers) DeleteMemo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgMemoNotFound)
		return
	}

	err := h.db.DeleteMemo(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMemoNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "删除成功", nil)
}
