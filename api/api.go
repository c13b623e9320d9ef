package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RespondJSONAndLog is a convenience wrapper around RespondJSON that also logs any encoding errors.
func RespondJSONAndLog(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if err := RespondJSON(w, status, payload); err != nil {
		logger.Debug("failed to respond with JSON", "err", err)
	}
}

// RespondJSON sets the status code and Content-Type header and encodes
// payload as the response body.
//
// Returns an error only if JSON encoding fails.
func RespondJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// CredentialsRequest is the body of the signup and login endpoints.
// Confirm is only checked on signup, and only when present.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm,omitempty"`
}

type SignupResponse struct {
	ID uuid.UUID `json:"id"`
}

type TokenResponse struct {
	ExpiresIn int64  `json:"expiresIn"`
	Token     string `json:"token"`
}

type AccountResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}
