package handler

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"cppolygon/internal/gateway/middleware"
	"cppolygon/internal/view"
)

// PageHandler renders the single-page UI for the caller's session.
type PageHandler struct {
	view *view.Renderer
	log  *zap.Logger
}

func NewPageHandler(r *view.Renderer, log *zap.Logger) *PageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageHandler{view: r, log: log.Named("page")}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, ok := middleware.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := h.view.Page(&buf, st.Snapshot()); err != nil {
		h.log.Error("render page", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
