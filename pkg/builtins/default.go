package builtins

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ryan-Har/truckbook/internal/tokenstore"
	"github.com/Ryan-Har/truckbook/pkg/enforcer"
	"github.com/Ryan-Har/truckbook/pkg/flash"
)

type Builtin struct {
	enforcer *enforcer.Enforcer
	handler  *Handler
	api      bool
}

// New returns the account routes bound to enforcer. When tokens is nil the
// /api/v1 routes are not registered.
func New(logger *slog.Logger, enforcer *enforcer.Enforcer, auth Authority, tokens tokenstore.TokenStore, flashes *flash.Carrier, cookie CookieConfig) *Builtin {
	return &Builtin{
		enforcer: enforcer,
		handler:  newHandler(logger, auth, tokens, flashes, cookie),
		api:      tokens != nil,
	}
}

// LoadAllRoutes registers every route group. Failures are combined with
// errors.Join.
func (b *Builtin) LoadAllRoutes() error {
	errs := []error{
		b.LoadDefaultSignupRoute(),
		b.LoadDefaultLoginRoute(),
		b.LoadDefaultHomeRoute(),
	}
	if b.api {
		errs = append(errs, b.LoadDefaultAPIRoutes())
	}
	return errors.Join(errs...)
}

func (b *Builtin) LoadAllPolicies() {
	b.enforcer.LoadDefaultPolicies()
}

// LoadDefaultSignupRoute serves the registration form and creates the account
// and its first session on submit.
func (b *Builtin) LoadDefaultSignupRoute() error {
	return b.registerRoutes(map[string]http.HandlerFunc{
		"GET /":        b.handler.handleRoot(),
		"GET /signup":  b.handler.handleSignupGet(),
		"POST /signup": b.handler.handleSignupPost(),
	})
}

func (b *Builtin) LoadDefaultLoginRoute() error {
	return b.registerRoutes(map[string]http.HandlerFunc{
		"GET /login":  b.handler.handleLoginGet(),
		"POST /login": b.handler.handleLoginPost(),
		"GET /logout": b.handler.handleLogout(),
	})
}

func (b *Builtin) LoadDefaultHomeRoute() error {
	return b.registerRoutes(map[string]http.HandlerFunc{
		"GET /home": b.handler.handleHomeGet(),
	})
}

func (b *Builtin) LoadDefaultAPIRoutes() error {
	return b.registerRoutes(map[string]http.HandlerFunc{
		"POST /api/v1/signup":        b.handler.handleAPISignupPost(),
		"POST /api/v1/login":         b.handler.handleAPILoginPost(),
		"POST /api/v1/logout":        b.handler.handleAPILogout(),
		"GET /api/v1/me":             b.handler.handleAPIMeGet(),
		"POST /api/v1/token/refresh": b.handler.handleAPITokenRefresh(),
	})
}

// registerRoutes registers each "METHOD /path" pattern with the enforcer and
// returns every registration error joined.
func (b *Builtin) registerRoutes(routes map[string]http.HandlerFunc) error {
	var errs []error
	for pattern, handler := range routes {
		if err := b.enforcer.Handle(pattern, handler); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
