package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

// UserIDHeader carries the caller's user id.
const UserIDHeader = "X-User-Id"

// Auth failure codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUserNotFound = "USER_NOT_FOUND"
	CodeAuthError    = "AUTH_ERROR"
)

// AuthUser is the caller attached to the request context.
type AuthUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

type contextKey struct{}

// UserFromContext returns the authenticated caller, or nil.
func UserFromContext(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(contextKey{}).(*AuthUser)
	return user
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// callerID returns the authenticated caller's id, or 0.
func callerID(ctx context.Context) int64 {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return 0
}

var (
	errNoUserID      = errors.New("no user id supplied")
	errInvalidUserID = errors.New("user id is not a positive integer")
)

// RequireAuth rejects requests that do not identify an existing user.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.identify(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		case errors.Is(err, errNoUserID):
			metrics.AuthFailuresTotal.WithLabelValues(CodeUnauthorized).Inc()
			writeCodedError(w, http.StatusUnauthorized, "未登录，请先登录", CodeUnauthorized)
		case errors.Is(err, errInvalidUserID), errors.Is(err, database.ErrNotFound):
			metrics.AuthFailuresTotal.WithLabelValues(CodeUserNotFound).Inc()
			writeCodedError(w, http.StatusUnauthorized, "用户不存在，请重新登录", CodeUserNotFound)
		default:
			metrics.AuthFailuresTotal.WithLabelValues(CodeAuthError).Inc()
			logging.Errorw("User lookup failed", "path", r.URL.Path, "error", err)
			writeCodedError(w, http.StatusInternalServerError, "认证失败", CodeAuthError)
		}
	})
}

// OptionalAuth attaches the caller when one can be identified and never
// blocks the request.
func (h *Handlers) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := h.identify(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) identify(r *http.Request) (*AuthUser, error) {
	raw := requestUserID(r)
	if raw == "" {
		return nil, errNoUserID
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errInvalidUserID
	}

	u, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &AuthUser{ID: u.ID, Username: u.Username, Nickname: u.Nickname}, nil
}

// requestUserID looks for the user id in the header, then the body, then
// the query string.
func requestUserID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(UserIDHeader)); v != "" {
		return v
	}
	if v := bodyUserID(r); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("userId"))
}

// bodyUserID reads userId from a JSON, urlencoded or multipart body. JSON
// bodies are restored so the handler can decode them again.
func bodyUserID(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(data))
		if err != nil {
			return ""
		}

		var body struct {
			UserID json.RawMessage `json:"userId"`
		}
		if json.Unmarshal(data, &body) != nil || len(body.UserID) == 0 || string(body.UserID) == "null" {
			return ""
		}
		return strings.TrimSpace(strings.Trim(string(body.UserID), `"`))
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return strings.TrimSpace(r.PostFormValue("userId"))
	default:
		return ""
	}
}

// claimedUserID returns the caller id a request names, whether or not it
// belongs to an existing account. A resolved user takes precedence.
func claimedUserID(r *http.Request) (int64, bool) {
	if user := UserFromContext(r.Context()); user != nil {
		return user.ID, true
	}
	id, err := strconv.ParseInt(requestUserID(r), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
