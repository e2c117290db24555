// Package site serves the landing page, its static assets and the health
// check.
package site

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"huanbo/pkg/platform/httputil"
	"huanbo/pkg/requestcontext"
)

const (
	indexFile    = "index.html"
	cacheControl = "public, max-age=86400"
)

// Handler serves files from a static directory.
type Handler struct {
	root      http.FileSystem
	logger    *slog.Logger
	startedAt time.Time
}

func New(staticDir string, logger *slog.Logger, startedAt time.Time) *Handler {
	return &Handler{
		root:      http.Dir(staticDir),
		logger:    logger,
		startedAt: startedAt,
	}
}

// RegisterHealth mounts the health check.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

// Register mounts the landing page and the static catch-all. Unknown paths
// answer 404 with the landing page so client-side links keep working.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Head("/", h.handleIndex)
	r.Get("/*", h.handleStatic)
	r.Head("/*", h.handleStatic)
	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleNotFound)
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := requestcontext.Now(r.Context())
	httputil.WriteJSON(w, http.StatusOK, &HealthResponse{
		Status:    "healthy",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startedAt).Seconds(),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !h.serveFile(w, r, "/"+indexFile, http.StatusOK) {
		h.handleNotFound(w, r)
	}
}

func (h *Handler) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	if !h.serveFile(w, r, name, http.StatusOK) {
		h.handleNotFound(w, r)
	}
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if h.serveFile(w, r, "/"+indexFile, http.StatusNotFound) {
		return
	}
	http.NotFound(w, r)
}

// serveFile writes name if it is a regular file (or a directory holding an
// index.html). It reports false when there is nothing to serve.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string, status int) bool {
	f, info, err := h.open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(r.Context(), "failed to open static file",
				"request_id", requestcontext.RequestID(r.Context()),
				"path", name,
				"error", err,
			)
		}
		return false
	}
	defer f.Close()

	w.Header().Set("Cache-Control", cacheControl)
	if status != http.StatusOK {
		// ServeContent only writes 200/206/304; the 404 shell is written as is.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_, _ = io.Copy(w, f)
		}
		return true
	}

	w.Header().Set("ETag", etag(info))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func (h *Handler) open(name string) (http.File, os.FileInfo, error) {
	f, err := h.root.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.IsDir() {
		return f, info, nil
	}
	f.Close()
	return h.open(path.Join(name, indexFile))
}

func etag(info os.FileInfo) string {
	return fmt.Sprintf(`W/"%x-%x"`, info.Size(), info.ModTime().UnixNano())
}
