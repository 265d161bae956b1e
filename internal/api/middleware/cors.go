package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig is the policy source for CORS; api.CORSConfig satisfies it.
type CORSConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
	GetExposedHeaders() []string
	GetMaxAge() int
}

// corsPolicy is a CORSConfig flattened into ready-to-send header values.
type corsPolicy struct {
	anyOrigin bool
	origins   []string
	fixed     http.Header
}

func newCORSPolicy(config CORSConfig) corsPolicy {
	origins := config.GetAllowedOrigins()

	policy := corsPolicy{
		anyOrigin: slices.Equal(origins, []string{"*"}),
		origins:   origins,
		fixed:     http.Header{},
	}

	for name, values := range map[string][]string{
		"Access-Control-Allow-Methods":  config.GetAllowedMethods(),
		"Access-Control-Allow-Headers":  config.GetAllowedHeaders(),
		"Access-Control-Expose-Headers": config.GetExposedHeaders(),
	} {
		if len(values) > 0 {
			policy.fixed.Set(name, strings.Join(values, ", "))
		}
	}

	if maxAge := config.GetMaxAge(); maxAge > 0 {
		policy.fixed.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	}

	return policy
}

// CORS applies config to every response. OPTIONS requests get 204 and stop here,
// so the mux never sees a preflight.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.apply(w.Header(), r.Header.Get("Origin"))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p corsPolicy) apply(h http.Header, origin string) {
	for name, values := range p.fixed {
		h.Set(name, values[0])
	}

	switch {
	case p.anyOrigin:
		h.Set("Access-Control-Allow-Origin", "*")
	case len(p.origins) > 0:
		// The answer depends on Origin, so shared caches must key on it.
		h.Add("Vary", "Origin")

		if slices.Contains(p.origins, origin) {
			h.Set("Access-Control-Allow-Origin", origin)
		}
	}
}
