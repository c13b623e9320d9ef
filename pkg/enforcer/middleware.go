package enforcer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Ryan-Har/truckbook/api"
	"github.com/Ryan-Har/truckbook/internal/sessionstore"
	"github.com/Ryan-Har/truckbook/internal/tokenstore"
	"github.com/Ryan-Har/truckbook/pkg/flash"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
	expiredContextKey   contextKey = "session_expired"
)

const (
	msgLoginRequired  = "please log in to continue"
	msgSessionExpired = "your session has expired, please log in again"
)

// Principal is the authenticated caller of a request. Exactly one of Session
// and Token is set.
type Principal struct {
	AccountID uuid.UUID
	Email     string
	Session   *models.Session
	Token     *tokenstore.TokenPayload
	TokenStr  string
}

// PrincipalFrom returns the caller attached by AuthenticationMiddleware, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	return p, ok && p != nil
}

// AuthenticationMiddleware attaches a *Principal to the request context when
// the request carries a valid bearer token or session cookie, checked in that
// order. Anonymous requests pass through untouched.
//
// A session cookie that no longer resolves is cleared on the client. Store
// failures are answered with 500 and never fall back to anonymous.
func (e *Enforcer) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal, ok := e.tryJWTAuth(r)
		if !ok {
			var expired bool
			var err error
			principal, expired, err = e.trySessionAuth(r, w)
			if err != nil {
				e.respondInternalError(w, r)
				return
			}
			if expired {
				ctx = context.WithValue(ctx, expiredContextKey, true)
			}
		}

		if principal != nil {
			ctx = context.WithValue(ctx, PrincipalContextKey, principal)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthorizationMiddleware refuses requests without a Principal. API callers
// get a 401 JSON body; browsers are redirected to RedirectOnAuthErrorPath
// with an error flash.
//
// It expects AuthenticationMiddleware to have run first.
func (e *Enforcer) AuthorizationMiddleware(path string, required Access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if required == AccessPublic {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := PrincipalFrom(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			e.log.DebugContext(r.Context(), "refused anonymous request", "path", path, "url", r.URL.Path)
			if isAPIRequest(r) {
				api.ReturnError(w, e.log, api.UnauthorizedAuthRequired)
				return
			}

			var notices flash.Notices
			if expired, _ := r.Context().Value(expiredContextKey).(bool); expired {
				notices.Error(msgSessionExpired)
			} else {
				notices.Error(msgLoginRequired)
			}
			e.flashes.Set(w, notices)
			http.Redirect(w, r, e.RedirectOnAuthErrorPath, http.StatusSeeOther)
		})
	}
}

// WrapHandler applies authentication and, if the matching policy demands
// it, authorization to h.
func (e *Enforcer) WrapHandler(path, method string, h http.Handler) http.Handler {
	if required, _ := e.FindMatchingPolicy(path, method); required != AccessPublic {
		h = e.AuthorizationMiddleware(path, required)(h)
	}
	return e.AuthenticationMiddleware(h)
}

func (e *Enforcer) extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("no authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

func (e *Enforcer) validateToken(ctx context.Context, tokenStr string) (*tokenstore.TokenPayload, error) {
	payload, err := e.tokens.ParseToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	revoked, err := e.tokens.IsRevoked(ctx, payload)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, tokenstore.ErrTokenRevoked
	}
	return payload, nil
}

// tryJWTAuth authenticates a bearer token. Invalid tokens are treated as
// absent so public API routes stay reachable.
func (e *Enforcer) tryJWTAuth(r *http.Request) (*Principal, bool) {
	if e.tokens == nil {
		return nil, false
	}
	tokenStr, err := e.extractBearerToken(r)
	if err != nil {
		return nil, false
	}

	payload, err := e.validateToken(r.Context(), tokenStr)
	if err != nil {
		e.log.DebugContext(r.Context(), "bearer token rejected", "err", err, "url", r.URL.Path)
		return nil, false
	}

	return &Principal{
		AccountID: payload.AccountID,
		Email:     payload.Email,
		Token:     payload,
		TokenStr:  tokenStr,
	}, true
}

// trySessionAuth resolves the session cookie. expired reports that a cookie
// was present but no longer valid; it has been cleared on w.
func (e *Enforcer) trySessionAuth(r *http.Request, w http.ResponseWriter) (p *Principal, expired bool, err error) {
	cookie, err := r.Cookie(e.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false, nil
	}

	account, sesh, err := e.sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, sessionstore.ErrSessionExpired) {
			e.log.DebugContext(r.Context(), "expired session cookie", "url", r.URL.Path)
			e.expireSessionCookie(w)
			return nil, true, nil
		}
		e.log.ErrorContext(r.Context(), "unable to resolve session cookie", "err", err, "url", r.URL.Path)
		return nil, false, err
	}

	return &Principal{
		AccountID: account.ID,
		Email:     account.Email,
		Session:   sesh,
	}, false, nil
}

func (e *Enforcer) expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     e.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// isAPIRequest reports whether the caller expects JSON rather than HTML.
func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (e *Enforcer) respondInternalError(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		api.ReturnError(w, e.log, api.InternalServerError)
		return
	}
	http.Error(w, models.PublicPersistenceMessage, http.StatusInternalServerError)
}

func (e *Enforcer) respondMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		api.ReturnError(w, e.log, api.MethodNotAllowed)
		return
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
