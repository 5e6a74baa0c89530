package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求格式无效")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, req.Password, req.Nickname)
	if errors.Is(err, database.ErrAlreadyExists) {
		writeError(w, http.StatusBadRequest, "用户名已存在")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	logging.Infow("User registered", "id", user.ID, "username", user.Username)
	writeMessage(w, "注册成功", user)
}

// Login checks a username and password and returns the account
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "请求格式无效")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "用户名和密码不能为空")
		return
	}

	user, err := h.db.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		logging.Warnw("Failed login attempt", "username", req.Username)
		metrics.AuthFailuresTotal.WithLabelValues("INVALID_CREDENTIALS").Inc()
		writeError(w, http.StatusUnauthorized, "用户名或密码错误")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeMessage(w, "登录成功", user)
}

// GetUser returns one account
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "用户不存在")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "用户不存在")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeData(w, user)
}

// ListUsers returns every account, newest first
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if users == nil {
		users = []database.User{}
	}
	writeData(w, users)
}
