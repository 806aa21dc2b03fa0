// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/queue"
)

// Config holds API server configuration.
type Config struct {
	Version         string
	DefaultLanguage string
}

// Server is the v1 API server.
type Server struct {
	manager   *queue.Manager
	providers *provider.Registry
	cfg       Config
}

// New creates a new v1 API server.
func New(manager *queue.Manager, providers *provider.Registry, cfg Config) *Server {
	return &Server{
		manager:   manager,
		providers: providers,
		cfg:       cfg,
	}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Queue
	mux.HandleFunc("POST /api/v1/queue", s.submitBatch)
	mux.HandleFunc("GET /api/v1/queue/status", s.queueStatus)
	mux.HandleFunc("POST /api/v1/queue/{id}/cancel", s.cancelJob)
	mux.HandleFunc("PUT /api/v1/queue/concurrency", s.setConcurrency)

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
	mux.HandleFunc("GET /api/v1/providers", s.listProviders)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// pathID extracts an integer ID from the URL path.
func pathID(r *http.Request, name string) (int64, error) {
	idStr := r.PathValue(name)
	if idStr == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// POST /api/v1/queue
func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "title is required")
		return
	}
	if req.Language == "" {
		req.Language = s.cfg.DefaultLanguage
	}

	ids, err := s.manager.Submit(req.Title, req.ItemURLs, req.Language, req.Provider)
	switch {
	case errors.Is(err, queue.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "empty_batch", "item_urls must contain at least one URL")
		return
	case errors.Is(err, provider.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown_provider", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "submit_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{JobIDs: ids})
}

// GET /api/v1/queue/status
func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Status())
}

// POST /api/v1/queue/{id}/cancel
func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Success: s.manager.Cancel(id)})
}

// PUT /api/v1/queue/concurrency
func (s *Server) setConcurrency(w http.ResponseWriter, r *http.Request) {
	var req concurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := s.manager.SetMaxConcurrent(req.MaxConcurrent); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_concurrency", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, concurrencyResponse{MaxConcurrent: s.manager.MaxConcurrent()})
}

// GET /api/v1/status
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	queued, running := s.manager.Counts()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        "ok",
		Version:       s.cfg.Version,
		Queued:        queued,
		Running:       running,
		MaxConcurrent: s.manager.MaxConcurrent(),
	})
}

// GET /api/v1/providers
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providersResponse{Order: s.providers.Order()})
}
