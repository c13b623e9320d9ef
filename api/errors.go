package api

import (
	"log/slog"
	"net/http"

	"github.com/Ryan-Har/truckbook/pkg/models"
)

// ErrorKey references a standardized error message in the errorMessages map.
// Several keys may share one HTTP status.
type ErrorKey string

const (
	ErrInvalidJSON      ErrorKey = "invalid_json"
	ErrValidation       ErrorKey = "validation_failed"
	ErrInternal         ErrorKey = "internal_error"
	ErrCredentials      ErrorKey = "invalid_credentials"
	ErrAuthRequired     ErrorKey = "auth_required"
	ErrInvalidToken     ErrorKey = "invalid_token"
	ErrConflict         ErrorKey = "conflict"
	ErrMethodNotAllowed ErrorKey = "not_allowed"
)

var errorMessages = map[ErrorKey]string{
	ErrInvalidJSON:      "invalid JSON format",
	ErrValidation:       "validation failed",
	ErrInternal:         "internal server error",
	ErrCredentials:      "invalid credentials",
	ErrAuthRequired:     "authentication required",
	ErrInvalidToken:     "invalid token",
	ErrConflict:         "resource conflict",
	ErrMethodNotAllowed: "method not allowed",
}

// ErrorResponse is the JSON body returned for an error.
// - Error:   short machine-readable summary of the problem
// - Details: optional human-readable explanation
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewError builds an ErrorResponse for key. Unknown keys fall back to
// "unknown error".
func NewError(status int, key ErrorKey, details string) (int, ErrorResponse) {
	msg, ok := errorMessages[key]
	if !ok {
		msg = "unknown error"
	}
	return status, ErrorResponse{
		Error:   msg,
		Details: details,
	}
}

func BadRequestInvalidJSON() (int, ErrorResponse) {
	return NewError(http.StatusBadRequest, ErrInvalidJSON, "expected valid JSON object")
}

func BadRequestValidation(details string) (int, ErrorResponse) {
	return NewError(http.StatusBadRequest, ErrValidation, details)
}

// InternalServerError never carries the underlying cause.
func InternalServerError() (int, ErrorResponse) {
	return NewError(http.StatusInternalServerError, ErrInternal, models.PublicPersistenceMessage)
}

func MethodNotAllowed() (int, ErrorResponse) {
	return NewError(http.StatusMethodNotAllowed, ErrMethodNotAllowed, "")
}

// UnauthorizedInvalidCredentials is shared by the unknown-account and
// wrong-password paths.
func UnauthorizedInvalidCredentials() (int, ErrorResponse) {
	return NewError(http.StatusUnauthorized, ErrCredentials, models.PublicCredentialsMessage)
}

func UnauthorizedAuthRequired() (int, ErrorResponse) {
	return NewError(http.StatusUnauthorized, ErrAuthRequired, "a bearer token or session is required")
}

func UnauthorizedInvalidToken() (int, ErrorResponse) {
	return NewError(http.StatusUnauthorized, ErrInvalidToken, "token is expired, revoked or malformed")
}

func ResourceConflict(details string) (int, ErrorResponse) {
	return NewError(http.StatusConflict, ErrConflict, details)
}

// ReturnError calls errorFunc and writes its result with RespondJSONAndLog.
func ReturnError(w http.ResponseWriter, logger *slog.Logger, errorFunc func() (int, ErrorResponse)) {
	status, errResp := errorFunc()
	RespondJSONAndLog(w, logger, status, errResp)
}
