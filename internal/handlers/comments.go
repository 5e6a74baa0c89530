package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
)

const msgCommentNotFound = "评论不存在"

// CommentRequest is the body of POST /api/comments
type CommentRequest struct {
	MediaID FlexibleID `json:"mediaId"`
	Content string     `json:"content"`
}

// ListComments returns the comments on a media item, oldest first
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := pathID(r, "mediaId")
	if !ok {
		writeData(w, []database.Comment{})
		return
	}

	comments, err := h.db.ListComments(r.Context(), mediaID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if comments == nil {
		comments = []database.Comment{}
	}
	writeData(w, comments)
}

// CreateComment adds the caller's comment to a media item
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	err := decodeJSON(r, &req)
	content := strings.TrimSpace(req.Content)
	if err != nil || req.MediaID <= 0 || content == "" {
		writeError(w, http.StatusBadRequest, "媒体ID和评论内容不能为空")
		return
	}

	comment, err := h.db.CreateComment(r.Context(), int64(req.MediaID), callerID(r.Context()), content)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgMediaNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeData(w, comment)
}

// DeleteComment removes a comment. When the caller identifies themselves
// they may only delete their own comments.
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgCommentNotFound)
		return
	}

	comment, err := h.db.GetComment(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgCommentNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	if claimed, ok := claimedUserID(r); ok && claimed != comment.UserID {
		writeError(w, http.StatusForbidden, "无权删除此评论")
		return
	}

	err = h.db.DeleteComment(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgCommentNotFound)
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "删除成功", nil)
}
