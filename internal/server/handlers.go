package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soumikpal/schemagraph/internal/datasource"
	"github.com/soumikpal/schemagraph/internal/errs"
	"github.com/soumikpal/schemagraph/internal/extract"
	"github.com/soumikpal/schemagraph/internal/introspect"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleEngines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"engines": s.svc.Engines()})
}

func (s *Server) handleListDatasources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]datasource.DataSource{"datasources": s.store.List()})
}

func (s *Server) handleCreateDatasource(w http.ResponseWriter, r *http.Request) {
	var ds datasource.DataSource
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return
	}
	if ds.Engine != "" && !s.svc.SupportsEngine(ds.Engine) {
		writeError(w, errs.New(errs.ErrKindUnsupportedEngine, "unsupported engine: "+ds.Engine))
		return
	}
	if err := s.store.Save(ds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds.Redacted())
}

func (s *Server) handleGetDatasource(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds.Redacted())
}

func (s *Server) handleDeleteDatasource(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	ok, msg := s.svc.TestConnection(r.Context(), ds.Engine, ds.Params)
	writeJSON(w, http.StatusOK, map[string]any{"ok": ok, "error": msg})
}

// extractRequest is the optional body for the extract endpoints.
type extractRequest struct {
	// Schemas scopes the run; empty means all discovered schemas.
	Schemas []string `json:"schemas"`
	// Password overrides the stored credential for this run and is saved
	// back to the datasource store on use.
	Password string `json:"password"`
	// IncludeColumns and IncludeForeignKeys default to true when absent.
	IncludeColumns     *bool `json:"include_columns"`
	IncludeForeignKeys *bool `json:"include_foreign_keys"`
}

func (s *Server) buildRequest(r *http.Request) (string, extract.Request, error) {
	name := chi.URLParam(r, "name")
	ds, err := s.store.Get(name)
	if err != nil {
		return "", extract.Request{}, err
	}

	var body extractRequest
	if r.Body != nil {
		// An empty body is a valid "extract everything" request.
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", extract.Request{}, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
		}
	}

	if body.Password != "" {
		ds.Params.Password = body.Password
		if err := s.store.Save(ds); err != nil {
			return "", extract.Request{}, err
		}
	}

	req := extract.NewRequest(ds.Engine, ds.Params)
	req.Schemas = body.Schemas
	if body.IncludeColumns != nil {
		req.IncludeColumns = *body.IncludeColumns
	}
	if body.IncludeForeignKeys != nil {
		req.IncludeForeignKeys = *body.IncludeForeignKeys
	}
	return name, req, nil
}

// handleExtract streams every progress record as one SSE data event.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	name, req, err := s.buildRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errs.New(errs.ErrKindUnknown, "streaming unsupported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for p := range s.svc.ExtractAndStore(r.Context(), name, req) {
		data, err := json.Marshal(p)
		if err != nil {
			s.log.ErrorWith("progress marshal failed", err, nil)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

// handleExtractSync drains the stream and returns only the terminal record.
func (s *Server) handleExtractSync(w http.ResponseWriter, r *http.Request) {
	name, req, err := s.buildRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	final := introspect.Collect(s.svc.ExtractAndStore(r.Context(), name, req))
	status := http.StatusOK
	if final.Phase == metadata.PhaseError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, final)
}
