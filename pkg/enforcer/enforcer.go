package enforcer

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Ryan-Har/truckbook/internal/tokenstore"
	"github.com/Ryan-Har/truckbook/pkg/flash"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Access is the level a route demands of the caller.
type Access int

const (
	AccessPublic        Access = iota // anyone, signed in or not
	AccessAuthenticated               // a live session or a valid bearer token
)

func (a Access) String() string {
	if a == AccessAuthenticated {
		return "authenticated"
	}
	return "public"
}

// Enforcer guards routes registered through it. Every request is
// authenticated when it carries a session cookie or bearer token; routes with
// an AccessAuthenticated policy additionally reject anonymous callers.
type Enforcer struct {
	log      *slog.Logger
	Policies map[string]map[string]Access       // route: {GET: AccessAuthenticated}
	handlers map[string]map[string]http.Handler // path -> method -> handler
	router   Router
	sessions SessionResolver
	tokens   TokenVerifier
	flashes  *flash.Carrier
	tracer   trace.Tracer
	Config
	mu sync.RWMutex
}

type Config struct {
	SessionCookieName       string // cookie carrying the session token
	SessionCookieSecure     bool   // recommended true anywhere but local development
	RedirectOnAuthErrorPath string // browser destination when a protected page is refused
}

// SessionResolver maps a session token to the account behind it.
type SessionResolver interface {
	// Resolve returns ErrSessionExpired (sessionstore) for unknown, revoked
	// and expired tokens.
	Resolve(ctx context.Context, sessionID string) (*models.Account, *models.Session, error)
}

// TokenVerifier checks API bearer tokens.
type TokenVerifier interface {
	ParseToken(ctx context.Context, tokenStr string) (*tokenstore.TokenPayload, error)
	IsRevoked(ctx context.Context, tokenPayload *tokenstore.TokenPayload) (bool, error)
}

// NewEnforcer returns an Enforcer with no policies. A nil config selects
// the defaults; a nil tokens disables bearer authentication.
//
// Example:
//
//	e := NewEnforcer(logger, mux, authority, tokens, flashes, nil)
//	e.LoadDefaultPolicies()
func NewEnforcer(logger *slog.Logger, router Router, sessions SessionResolver, tokens TokenVerifier, flashes *flash.Carrier, config *Config) *Enforcer {
	if config == nil {
		config = newDefaultConfig()
	}
	if flashes == nil {
		flashes = flash.NewCarrier(config.SessionCookieSecure)
	}

	return &Enforcer{
		log:      logger,
		Policies: make(map[string]map[string]Access),
		handlers: make(map[string]map[string]http.Handler),
		router:   router,
		sessions: sessions,
		tokens:   tokens,
		flashes:  flashes,
		tracer:   otel.Tracer(tracerName),
		Config:   *config,
	}
}

// SetTracerProvider replaces the global provider for request spans.
func (e *Enforcer) SetTracerProvider(tp trace.TracerProvider) {
	e.tracer = tp.Tracer(tracerName)
}

func newDefaultConfig() *Config {
	return &Config{
		SessionCookieName:       "session_token",
		SessionCookieSecure:     true,
		RedirectOnAuthErrorPath: "/login",
	}
}

// SetPolicy sets the access level for a resource path and HTTP method.
// Use "*" as the method to apply the policy to all methods for that path.
func (e *Enforcer) SetPolicy(resourcePath string, method string, required Access) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !strings.HasPrefix(resourcePath, "/") {
		resourcePath = "/" + resourcePath
	}
	if _, ok := e.Policies[resourcePath]; !ok {
		e.Policies[resourcePath] = make(map[string]Access)
	}
	e.Policies[resourcePath][strings.ToUpper(method)] = required
}

// FindMatchingPolicy finds the most specific policy for a path and method.
// Exact method matches win over wildcards at the same path; a longer path
// wins over a shorter one. Paths without any policy are public.
func (e *Enforcer) FindMatchingPolicy(resourcePath, method string) (Access, bool) {
	method = strings.ToUpper(method)
	pathsToCheck := buildPrefixes(resourcePath)

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, p := range pathsToCheck {
		methodPolicies, ok := e.Policies[p]
		if !ok {
			continue
		}
		if required, ok := methodPolicies[method]; ok {
			e.log.Debug("enforcer matched policy for path", "path", p, "method", method, "access", required)
			return required, true
		}
		if required, ok := methodPolicies["*"]; ok {
			e.log.Debug("enforcer matched wildcard policy for path", "path", p, "access", required)
			return required, true
		}
	}

	return AccessPublic, false
}

// buildPrefixes returns a list of paths to check from most specific to least specific.
// For "/a/b/c" it returns ["/a/b/c", "/a/b", "/a", "/"].
func buildPrefixes(path string) []string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return []string{"/"}
	}

	prefixes := make([]string, 0, len(segments)+1)
	for i := len(segments); i > 0; i-- {
		prefixes = append(prefixes, "/"+strings.Join(segments[:i], "/"))
	}
	return append(prefixes, "/")
}
