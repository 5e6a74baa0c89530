package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
)

// Router builds the application's routes. Mutating endpoints are wrapped in
// RequireAuth; comment deletion only identifies the caller when it can.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	// Probes
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Accounts
	api.HandleFunc("/auth/register", h.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/user/{id:[0-9]+}", h.GetUser).Methods("GET")
	api.HandleFunc("/auth/users", h.ListUsers).Methods("GET")

	// Media
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media/timeline", h.Timeline).Methods("GET")
	api.HandleFunc("/media/{id:[0-9]+}", h.GetMedia).Methods("GET")
	api.Handle("/media/{id:[0-9]+}", h.RequireAuth(http.HandlerFunc(h.DeleteMedia))).Methods("DELETE")
	api.Handle("/media/{id:[0-9]+}/tags", h.RequireAuth(http.HandlerFunc(h.AddMediaTags))).Methods("POST")
	api.Handle("/media/{id:[0-9]+}/tags/{tagId:[0-9]+}", h.RequireAuth(http.HandlerFunc(h.RemoveMediaTag))).Methods("DELETE")
	api.Handle("/upload", h.LimitUploadBody(h.RequireAuth(http.HandlerFunc(h.Upload)))).Methods("POST")
	api.HandleFunc("/media-proxy/image/{mediaId:[0-9]+}", h.ProxyImage).Methods("GET")

	// Tags
	api.HandleFunc("/tags", h.ListTags).Methods("GET")
	api.Handle("/tags", h.RequireAuth(http.HandlerFunc(h.CreateTag))).Methods("POST")
	api.Handle("/tags/{id:[0-9]+}", h.RequireAuth(http.HandlerFunc(h.UpdateTag))).Methods("PUT")
	api.Handle("/tags/{id:[0-9]+}", h.RequireAuth(http.HandlerFunc(h.DeleteTag))).Methods("DELETE")

	// Memos
	api.HandleFunc("/memos", h.ListMemos).Methods("GET")
	api.HandleFunc("/memos/{id:[0-9]+}", h.GetMemo).Methods("GET")
	api.Handle("/memos", h.RequireAuth(http.HandlerFunc(h.CreateMemo))).Methods("POST")
	api.Handle("/memos/{id:[0-9]+}", h.RequireAuth(http.HandlerFunc(h.UpdateMemo))).Methods("PUT")
	api.Handle("/memos/{id:[0-9]+}", h.RequireAuth(http.HandlerFunc(h.DeleteMemo))).Methods("DELETE")

	// Comments
	api.HandleFunc("/comments/media/{mediaId:[0-9]+}", h.ListComments).Methods("GET")
	api.Handle("/comments", h.RequireAuth(http.HandlerFunc(h.CreateComment))).Methods("POST")
	api.Handle("/comments/{id:[0-9]+}", h.OptionalAuth(http.HandlerFunc(h.DeleteComment))).Methods("DELETE")

	api.NotFoundHandler = http.HandlerFunc(apiNotFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(apiMethodNotAllowed)

	// Uploaded files
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(noListingFS{http.Dir(h.uploadDir)})),
	).Methods("GET", "HEAD")

	// Frontend
	if h.staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(noListingFS{http.Dir(h.staticDir)})).Methods("GET", "HEAD")
	}

	r.NotFoundHandler = http.HandlerFunc(apiNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(apiMethodNotAllowed)

	return r
}

func apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "接口不存在")
}

func apiMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "不支持的请求方法")
}

// noListingFS serves files but reports directories without an index.html as
// missing.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !stat.IsDir() {
		return f, nil
	}

	index := strings.TrimSuffix(name, "/") + "/index.html"
	idx, err := n.fs.Open(index)
	if err != nil {
		f.Close()
		return nil, os.ErrNotExist
	}
	idx.Close()
	return f, nil
}
