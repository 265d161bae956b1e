// Package middleware holds the request pipeline that wraps every userhub route:
// correlation IDs, panic recovery, per-client rate limiting, access logs and CORS.
package middleware

import (
	"log/slog"
	"net/http"
)

// Option wraps a handler with one middleware layer.
type Option func(http.Handler) http.Handler

// Apply wraps handler so that options run in the order given: options[0] sees the
// request first and the response last.
//
//	handler := middleware.Apply(mux,
//	    middleware.WithCorrelationID(),
//	    middleware.WithRecovery(logger),
//	    middleware.WithRateLimit(limiter, logger, middleware.TrustProxy(true)),
//	    middleware.WithRequestLogger(logger),
//	    middleware.WithCORS(corsConfig),
//	)
func Apply(handler http.Handler, options ...Option) http.Handler {
	for i := len(options) - 1; i >= 0; i-- {
		handler = options[i](handler)
	}

	return handler
}

// WithCorrelationID tags requests and responses with X-Correlation-ID.
func WithCorrelationID() Option {
	return CorrelationID()
}

// WithRecovery turns handler panics into a 500 problem response.
func WithRecovery(logger *slog.Logger) Option {
	return Recovery(logger)
}

// WithRateLimit enforces limiter per client address. Without a limiter the layer is
// a pass-through, which is how tests and local runs disable throttling.
func WithRateLimit(limiter RateLimiter, logger *slog.Logger, opts ...RateLimitOption) Option {
	if limiter == nil {
		return passThrough
	}

	return RateLimit(limiter, logger, opts...)
}

// WithRequestLogger writes one access-log line per completed request.
func WithRequestLogger(logger *slog.Logger) Option {
	return RequestLogger(logger)
}

// WithCORS answers preflights and decorates responses with the configured CORS policy.
func WithCORS(config CORSConfig) Option {
	return CORS(config)
}

func passThrough(next http.Handler) http.Handler {
	return next
}
