// Package server exposes the introspection engine over HTTP. The transport
// is deliberately thin: request decoding, datasource lookup, and streaming —
// all extraction logic lives in internal/introspect.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soumikpal/schemagraph/internal/datasource"
	"github.com/soumikpal/schemagraph/internal/errs"
	"github.com/soumikpal/schemagraph/internal/introspect"
	"github.com/soumikpal/schemagraph/internal/logger"
)

// Server holds the handler dependencies.
type Server struct {
	store *datasource.Store
	svc   *introspect.Service
	log   *logger.Logger
}

// New builds a Server.
func New(store *datasource.Store, svc *introspect.Service, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}
	return &Server{store: store, svc: svc, log: log}
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/engines", s.handleEngines)

		r.Route("/datasources", func(r chi.Router) {
			r.Get("/", s.handleListDatasources)
			r.Post("/", s.handleCreateDatasource)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetDatasource)
				r.Delete("/", s.handleDeleteDatasource)
				r.Post("/test", s.handleTestConnection)
				r.Post("/extract", s.handleExtract)
				r.Post("/extract-sync", s.handleExtractSync)
			})
		})
	})

	return r
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsInvalidInput(err), errs.IsUnsupportedEngine(err):
		status = http.StatusBadRequest
	case errs.IsConnectionFailed(err), errs.IsTimeout(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
