package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/userhub-io/userhub/internal/users"
)

const msgInvalidJSON = "Corpo da requisicao deve ser um JSON valido"

type (
	userListResponse struct {
		Data []users.User `json:"data"`
	}

	userResponse struct {
		Data users.User `json:"data"`
	}

	createUserResponse struct {
		Data    users.User `json:"data"`
		Updated bool       `json:"updated"`
	}
)

// handleListUsers handles GET /api/users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	found, err := s.users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	if found == nil {
		found = []users.User{}
	}

	s.writeJSON(w, r, http.StatusOK, userListResponse{Data: found})
}

// handleGetUser handles GET /api/users/{id}.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := users.ParseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, userResponse{Data: *user})
}

// handleCreateUser handles POST /api/users. A known email updates the stored row.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !hasJSONContentType(ct) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type deve ser application/json"))

		return
	}

	var in users.Input

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err := decoder.Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, r, s.logger, RequestEntityTooLarge("Corpo da requisicao excede o limite"))

			return
		}

		WriteErrorResponse(w, r, s.logger, BadRequest(msgInvalidJSON))

		return
	}

	created, err := s.users.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusCreated, createUserResponse{
		Data:    created.User,
		Updated: created.Updated,
	})
}

// hasJSONContentType allows charset parameters (e.g., "application/json; charset=utf-8").
func hasJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(contentType)), contentTypeJSON)
}
