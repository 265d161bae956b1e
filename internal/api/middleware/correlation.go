package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request correlation ID in both directions.
	CorrelationIDHeader = "X-Correlation-ID"

	maxCorrelationIDLength = 128
)

type correlationIDKey struct{}

// CorrelationID creates a middleware that tags each request with a correlation ID.
// A well-formed incoming X-Correlation-ID is reused; otherwise a UUID is generated.
// The ID is echoed in the response header and stored in the request context.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := r.Header.Get(CorrelationIDHeader)
			if !validCorrelationID(correlationID) {
				correlationID = uuid.NewString()
			}

			w.Header().Set(CorrelationIDHeader, correlationID)

			ctx := context.WithValue(r.Context(), correlationIDKey{}, correlationID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCorrelationID extracts the correlation ID from ctx, or "unknown".
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return correlationID
	}

	return "unknown"
}

// validCorrelationID accepts short printable ASCII IDs so client values cannot
// inject control characters into logs or headers.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}

	return true
}
