// Package api exposes the question answering workflow over HTTP, with
// optional server-sent event streaming of workflow progress.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/bedtimenews/newsagent/internal/agent"
	"github.com/bedtimenews/newsagent/internal/log"
)

// Engine runs the retrieval workflow for one question.
type Engine interface {
	Query(ctx context.Context, question string) (string, error)
	StreamQuery(ctx context.Context, question string, emit func(agent.Event) error) (*agent.State, error)
}

// Pinger reports storage health for the readiness probe. Satisfied by
// *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front of the QA service.
type Server struct {
	mux    *http.ServeMux
	engine Engine
	db     Pinger
	logger log.Logger
}

// NewServer wires all routes. The db pinger may be nil, in which case
// the readiness probe only reports process liveness.
func NewServer(engine Engine, db Pinger, logger log.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		engine: engine,
		db:     db,
		logger: logger,
	}

	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	return s
}

// ServeHTTP implements http.Handler with the middleware stack:
// Recovery → RequestID → Logging → Routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)

	handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("readiness probe failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
