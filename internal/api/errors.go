package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/userhub-io/userhub/internal/api/middleware"
	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/users"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeProblemJSON = "application/problem+json"

	msgInternal = "Erro interno"
)

// ProblemDetail represents an RFC 7807 Problem Details structure, extended with the
// ordered field messages of validation failures.
// See https://tools.ietf.org/html/rfc7807 for specification.
type ProblemDetail struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Status        int      `json:"status"`
	Detail        string   `json:"detail,omitempty"`
	Instance      string   `json:"instance,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// NewProblemDetail creates a new RFC 7807 Problem Detail.
func NewProblemDetail(status int, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   fmt.Sprintf("%s%d", middleware.ProblemTypeBase, status),
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// WithErrors attaches field messages to the problem.
func (p *ProblemDetail) WithErrors(errs []string) *ProblemDetail {
	p.Errors = errs

	return p
}

// WriteErrorResponse writes an RFC 7807 compliant error response.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, problem *ProblemDetail) {
	correlationID := middleware.GetCorrelationID(r.Context())

	if problem.CorrelationID == "" {
		problem.CorrelationID = correlationID
	}

	if problem.Instance == "" {
		problem.Instance = r.URL.Path
	}

	w.Header().Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(problem.Status)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		logger.Error("Failed to encode error response",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
			slog.Any("encode_error", err),
			slog.Int("status", problem.Status),
		)
	}
}

// problemFor maps a domain error to its HTTP problem. Unrecognized errors become a
// 500 whose detail never reveals the underlying cause.
func problemFor(err error) *ProblemDetail {
	var (
		validationErr *users.ValidationError
		upstreamErr   *integration.UpstreamError
	)

	switch {
	case errors.As(err, &validationErr):
		return BadRequest(validationErr.Message).WithErrors(validationErr.Errors)
	case errors.Is(err, users.ErrNotFound):
		return NotFound(users.ErrNotFound.Error())
	case errors.Is(err, users.ErrDuplicateEmail):
		return Conflict(users.ErrDuplicateEmail.Error())
	case errors.As(err, &upstreamErr):
		return BadGateway("Falha ao consultar a fonte externa de usuarios")
	default:
		return InternalServerError(msgInternal)
	}
}

// writeError logs err and writes the matching problem response. Server-side failures
// log at error level with the full cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	problem := problemFor(err)

	attrs := []any{
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()),
	}

	if problem.Status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", attrs...)
	} else {
		s.logger.Debug("Request rejected", attrs...)
	}

	WriteErrorResponse(w, r, s.logger, problem)
}

// Common error constructors for frequently used errors.

// InternalServerError creates a 500 Internal Server Error problem.
func InternalServerError(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusInternalServerError, "Internal Server Error", detail)
}

// BadRequest creates a 400 Bad Request problem.
func BadRequest(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusBadRequest, "Bad Request", detail)
}

// NotFound creates a 404 Not Found problem.
func NotFound(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusNotFound, "Not Found", detail)
}

// Conflict creates a 409 Conflict problem.
func Conflict(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusConflict, "Conflict", detail)
}

// UnsupportedMediaType creates a 415 Unsupported Media Type problem.
func UnsupportedMediaType(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusUnsupportedMediaType, "Unsupported Media Type", detail)
}

// RequestEntityTooLarge creates a 413 Request Entity Too Large problem.
func RequestEntityTooLarge(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusRequestEntityTooLarge, "Request Entity Too Large", detail)
}

// BadGateway creates a 502 Bad Gateway problem.
func BadGateway(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusBadGateway, "Bad Gateway", detail)
}

// ServiceUnavailable creates a 503 Service Unavailable problem.
func ServiceUnavailable(detail string) *ProblemDetail {
	return NewProblemDetail(http.StatusServiceUnavailable, "Service Unavailable", detail)
}
