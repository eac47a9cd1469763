// Package server exposes the query pipeline over HTTP.
//
// Endpoints:
//   - POST /api/query - route and answer one query
//   - GET  /healthz   - liveness check
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"qroute/internal/logger"
	"qroute/internal/pipeline"
)

// MaxRequestBodySize bounds the request body of /api/query (1MB)
const MaxRequestBodySize = 1 << 20

// Processor answers a single query
type Processor interface {
	Process(ctx context.Context, query string) (*pipeline.Result, error)
}

// QueryRequest is the body of POST /api/query. Query wins over Messages;
// Messages keeps the chat-style shape where the first message's content is
// the query.
type QueryRequest struct {
	Query    string `json:"query"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// Text returns the query carried by the request
func (r *QueryRequest) Text() string {
	if strings.TrimSpace(r.Query) != "" {
		return r.Query
	}
	if len(r.Messages) > 0 {
		return r.Messages[0].Content
	}
	return ""
}

// Server is the HTTP surface of the pipeline
type Server struct {
	addr      string
	processor Processor
	log       *logger.Logger
	mux       *http.ServeMux
	server    *http.Server
}

func New(addr string, processor Processor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		addr:      addr,
		processor: processor,
		log:       log,
		mux:       http.NewServeMux(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.logRequests(s.mux))
}

// Start listens on the configured address until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("Listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := s.processor.Process(r.Context(), req.Text())
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		s.writeError(w, http.StatusBadRequest, "query is required")
	case err != nil:
		s.log.Error("Query failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
