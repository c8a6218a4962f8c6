// Package api assembles the cmd/api composition root's HTTP surface: the
// ingest endpoint plus the subscriptions CRUD and status read collaborator
// handlers, grounded in the teacher's internal/api/server.go mux+CORS
// wiring.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocx/webhooks/internal/ingest"
	"github.com/ocx/webhooks/internal/middleware"
	"github.com/ocx/webhooks/internal/status"
	"github.com/ocx/webhooks/internal/subscriptions"
)

// Server wraps the configured *http.Server for the API process.
type Server struct {
	httpServer *http.Server
}

// New builds the router and wraps it in an *http.Server bound to addr.
func New(addr string, ingestHandler *ingest.Handler, subsHandler *subscriptions.Handler, statusHandler *status.Handler) *Server {
	r := mux.NewRouter()
	ingestHandler.Register(r)
	subsHandler.Register(r)
	statusHandler.Register(r)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	handler := middleware.Logging(middleware.CORS(r))

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// ListenAndServe starts serving; it blocks until the server stops or errors.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
