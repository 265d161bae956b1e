package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/userhub-io/userhub/internal/api/middleware"
)

const healthCheckTimeout = 2 * time.Second

type (
	// HealthStatus is the /health response body.
	HealthStatus struct {
		Status string `json:"status"`
	}

	// Route pairs a ServeMux pattern ("GET /ping") with its handler.
	Route struct {
		Pattern string
		Handler http.HandlerFunc
	}
)

// setupRoutes registers every endpoint on mux.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	routes := []Route{
		{"GET /ping", s.handlePing},
		{"GET /ready", s.handleReady},
		{"GET /health", s.handleHealth},

		{"GET /api/users", s.handleListUsers},
		{"GET /api/users/{id}", s.handleGetUser},
		{"POST /api/users", s.handleCreateUser},
		{"POST /api/users/usuarios/integrar", s.handleIntegrateUsers},

		{"GET /api/relatorios/usuarios", s.handleBirthReport},

		{"/", s.handleNotFound},
	}

	if s.metrics != nil {
		routes = append(routes, Route{"GET /metrics", s.metrics.Handler().ServeHTTP})
	}

	for _, route := range routes {
		mux.Handle(route.Pattern, route.Handler)
		s.logger.Debug("Route registered", slog.String("pattern", route.Pattern))
	}
}

// handlePing answers liveness probes without touching dependencies.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeText(w, r, http.StatusOK, "pong")
}

// handleReady reports 503 while the store cannot be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Error("Storage health check failed",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, ServiceUnavailable("storage unavailable"))

		return
	}

	s.writeText(w, r, http.StatusOK, "ready")
}

// handleHealth is the fixed liveness response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, HealthStatus{Status: "ok"})
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("Rota nao encontrada"))
}

// writeJSON marshals body before touching headers so an encoding failure can still
// become a 500 problem.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) writeText(w http.ResponseWriter, r *http.Request, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)

	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}
