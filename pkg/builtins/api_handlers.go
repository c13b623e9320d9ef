package builtins

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ryan-Har/truckbook/api"
	"github.com/Ryan-Har/truckbook/internal/tokenstore"
	"github.com/Ryan-Har/truckbook/pkg/enforcer"
	"github.com/Ryan-Har/truckbook/pkg/models"
)

// maxBodyBytes bounds credential request bodies.
const maxBodyBytes = 16 << 10

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (api.CredentialsRequest, bool) {
	var req api.CredentialsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.DebugContext(r.Context(), "decoding credentials", "path", r.URL.Path, "err", err)
		api.ReturnError(w, h.log, api.BadRequestInvalidJSON)
		return req, false
	}
	return req, true
}

// respondAuthorityError writes the JSON form of an Authority error.
func (h *Handler) respondAuthorityError(w http.ResponseWriter, err error) {
	status, msg := outcome(err)
	switch status {
	case http.StatusUnprocessableEntity:
		api.ReturnError(w, h.log, func() (int, api.ErrorResponse) { return api.BadRequestValidation(msg) })
	case http.StatusConflict:
		api.ReturnError(w, h.log, func() (int, api.ErrorResponse) { return api.ResourceConflict(msg) })
	case http.StatusUnauthorized:
		api.ReturnError(w, h.log, api.UnauthorizedInvalidCredentials)
	default:
		api.ReturnError(w, h.log, api.InternalServerError)
	}
}

func (h *Handler) handleAPISignupPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeCredentials(w, r)
		if !ok {
			return
		}
		if req.Confirm != "" && req.Confirm != req.Password {
			api.ReturnError(w, h.log, func() (int, api.ErrorResponse) { return api.BadRequestValidation(msgPasswordsDiffer) })
			return
		}

		id, err := h.auth.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			h.respondAuthorityError(w, err)
			return
		}
		api.RespondJSONAndLog(w, h.log, http.StatusCreated, api.SignupResponse{ID: id})
	}
}

func (h *Handler) handleAPILoginPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decodeCredentials(w, r)
		if !ok {
			return
		}

		res, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			h.respondAuthorityError(w, err)
			return
		}

		token, err := h.tokens.IssueToken(&models.Account{ID: res.AccountID, Email: res.Email})
		if err != nil {
			h.log.ErrorContext(r.Context(), "unable to issue token", "account_id", res.AccountID, "err", err)
			api.ReturnError(w, h.log, api.InternalServerError)
			return
		}

		api.RespondJSONAndLog(w, h.log, http.StatusOK, api.TokenResponse{
			ExpiresIn: int64(h.tokens.TokenDuration().Seconds()),
			Token:     token,
		})
	}
}

// handleAPILogout ends whichever credential authenticated the request.
func (h *Handler) handleAPILogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := enforcer.PrincipalFrom(r.Context())
		if !ok {
			api.ReturnError(w, h.log, api.UnauthorizedAuthRequired)
			return
		}

		var err error
		switch {
		case p.Token != nil:
			err = h.tokens.RevokeToken(r.Context(), p.Token)
		case p.Session != nil:
			err = h.auth.Logout(r.Context(), p.Session.ID)
			h.clearSessionCookie(w)
		}
		if err != nil {
			h.log.ErrorContext(r.Context(), "api logout failed", "account_id", p.AccountID, "err", err)
			api.ReturnError(w, h.log, api.InternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleAPIMeGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := enforcer.PrincipalFrom(r.Context())
		if !ok {
			api.ReturnError(w, h.log, api.UnauthorizedAuthRequired)
			return
		}
		api.RespondJSONAndLog(w, h.log, http.StatusOK, api.AccountResponse{ID: p.AccountID, Email: p.Email})
	}
}

func (h *Handler) handleAPITokenRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := enforcer.PrincipalFrom(r.Context())
		if !ok || p.TokenStr == "" {
			api.ReturnError(w, h.log, api.UnauthorizedAuthRequired)
			return
		}

		token, err := h.tokens.RefreshTokenStr(r.Context(), p.TokenStr)
		if err != nil {
			if errors.Is(err, tokenstore.ErrTokenRevoked) || errors.Is(err, tokenstore.ErrInvalidToken) {
				api.ReturnError(w, h.log, api.UnauthorizedInvalidToken)
				return
			}
			api.ReturnError(w, h.log, api.InternalServerError)
			return
		}

		api.RespondJSONAndLog(w, h.log, http.StatusOK, api.TokenResponse{
			ExpiresIn: int64(h.tokens.TokenDuration().Seconds()),
			Token:     token,
		})
	}
}
