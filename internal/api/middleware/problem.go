package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProblemTypeBase prefixes the RFC 7807 "type" URI of every userhub problem.
const ProblemTypeBase = "https://userhub.io/problems/"

// writeProblem writes a minimal RFC 7807 body for failures raised before a request
// reaches the api package handlers.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) error {
	problem := map[string]any{
		"type":          fmt.Sprintf("%s%d", ProblemTypeBase, status),
		"title":         http.StatusText(status),
		"status":        status,
		"detail":        detail,
		"instance":      r.URL.Path,
		"correlationId": GetCorrelationID(r.Context()),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(problem)
}
