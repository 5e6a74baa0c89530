package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/upload"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// UploadResponse is the body of POST /api/upload
type UploadResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    []upload.Result `json:"data"`
}

// LimitUploadBody caps the request body before anything reads it, including
// the auth middleware looking for a userId form field.
func (h *Handlers) LimitUploadBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

// Upload stores the files of a multipart request
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.UploadRequestsRejected.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusBadRequest, "上传内容超过大小限制")
			return
		}
		metrics.UploadRequestsRejected.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, "无效的上传请求")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Debug("failed to remove multipart temp files: %v", err)
		}
	}()

	files := formFiles(r.MultipartForm)
	if err := h.uploader.Validate(files); err != nil {
		var verr *upload.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeInternalError(w, r, err)
		return
	}

	tagIDs, err := parseTagIDs(r.FormValue("tags"))
	if err != nil {
		metrics.UploadRequestsRejected.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, "标签格式无效")
		return
	}

	results := h.uploader.Process(r.Context(), callerID(r.Context()), files, tagIDs, r.FormValue("description"))

	succeeded := 0
	for i := range results {
		if results[i].Media != nil {
			h.present(r.Context(), results[i].Media)
		}
		if results[i].Success {
			succeeded++
		}
	}

	status := http.StatusOK
	if succeeded == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, UploadResponse{
		Success: succeeded > 0,
		Message: fmt.Sprintf("成功上传 %d 个文件", succeeded),
		Data:    results,
	})
}

// formFiles collects the uploaded files, accepting both "files" and
// "files[]" field names.
func formFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := append([]*multipart.FileHeader{}, form.File["files"]...)
	return append(files, form.File["files[]"]...)
}

// parseTagIDs decodes the JSON array sent in the tags form field.
func parseTagIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var ids []FlexibleID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	return flexibleIDs(ids), nil
}
