package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cppolygon/internal/api"
	"cppolygon/internal/gateway/handler"
	"cppolygon/internal/gateway/middleware"
	"cppolygon/internal/session"
	"cppolygon/internal/view"
)

func NewMux(
	assistantHandler *handler.AssistantHandler,
	pageHandler *handler.PageHandler,
	stateStream *handler.StateStream,
	sessions *session.Registry,
	gatherer prometheus.Gatherer,
	log *zap.Logger,
) http.Handler {
	withSession := middleware.Session(sessions)

	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(api.NewAssistantServiceHandler(assistantHandler))

	// UI
	mux.Handle("/static/", view.Static())
	mux.Handle("/ws", stateStream)
	mux.Handle("/", pageHandler)

	// Ops
	mux.HandleFunc("/healthz", handler.Healthz)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Middleware
	return middleware.CORS(middleware.RequestLog(log)(sessionScoped(mux, withSession)))
}

// sessionScoped resolves a session for everything except static assets and
// ops endpoints, which must not mint sessions.
func sessionScoped(mux *http.ServeMux, withSession func(http.Handler) http.Handler) http.Handler {
	scoped := withSession(mux)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/metrics":
			mux.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/static/") {
			mux.ServeHTTP(w, r)
			return
		}
		scoped.ServeHTTP(w, r)
	})
}
