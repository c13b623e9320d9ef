// Package truckbook wires the account pages of the truck booking site:
// stores, the credential authority, the route enforcer and the built-in
// signup, login and logout handlers.
//
// Nothing here is global. The caller opens the database, passes it in with
// an Option, and calls Close before closing the database.
package truckbook

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/builtins"
	"github.com/Ryan-Har/truckbook/pkg/credential"
	"github.com/Ryan-Har/truckbook/pkg/enforcer"
	"github.com/Ryan-Har/truckbook/pkg/flash"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/Ryan-Har/truckbook/pkg/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
)

type TruckBook struct {
	logger    *slog.Logger
	Store     *store.Store
	Authority *credential.Authority
	Enforcer  *enforcer.Enforcer
	mux       *http.ServeMux

	// Held until New has a logger to build with
	db             *sql.DB
	pool           *pgxpool.Pool
	databaseURL    string
	storeOpts      store.Options
	hasher         passwd.Hasher
	observer       credential.Observer
	tracerProvider trace.TracerProvider
	cookieName     string
	secureCookies  bool
}

type Option func(*TruckBook)

func WithLogger(l *slog.Logger) Option {
	return func(t *TruckBook) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithSqliteDB(db *sql.DB) Option {
	return func(t *TruckBook) {
		t.db = db
	}
}

// WithPostgresPool uses pool for accounts. databaseURL is needed for
// migrations and must name the same database.
func WithPostgresPool(pool *pgxpool.Pool, databaseURL string) Option {
	return func(t *TruckBook) {
		t.pool = pool
		t.databaseURL = databaseURL
	}
}

func WithSessionBackend(b store.SessionBackend, boltPath string) Option {
	return func(t *TruckBook) {
		t.storeOpts.Sessions = b
		t.storeOpts.BoltPath = boltPath
	}
}

// WithSessionTTL sets the session lifetime and how often expired sessions
// are purged. Zero keeps the defaults.
func WithSessionTTL(ttl, cleanupInterval time.Duration) Option {
	return func(t *TruckBook) {
		t.storeOpts.Session.TTL = ttl
		t.storeOpts.Session.CleanupInterval = cleanupInterval
	}
}

// WithAPITokens enables the /api/v1 routes.
func WithAPITokens(secret string, ttl time.Duration) Option {
	return func(t *TruckBook) {
		t.storeOpts.TokenSecret = secret
		t.storeOpts.TokenTTL = ttl
	}
}

func WithoutMigrations() Option {
	return func(t *TruckBook) {
		t.storeOpts.SkipMigrations = true
	}
}

func WithHasher(h passwd.Hasher) Option {
	return func(t *TruckBook) {
		t.hasher = h
	}
}

func WithObserver(o credential.Observer) Option {
	return func(t *TruckBook) {
		t.observer = o
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *TruckBook) {
		t.tracerProvider = tp
	}
}

// WithCookies names the session cookie and sets its Secure flag.
func WithCookies(name string, secure bool) Option {
	return func(t *TruckBook) {
		if name != "" {
			t.cookieName = name
		}
		t.secureCookies = secure
	}
}

// New builds every component and registers the routes and policies.
//
// Example:
//
//	db, _ := sql.Open("sqlite3", "file:truckbook.db?_busy_timeout=5000")
//	defer db.Close()
//	tb, err := truckbook.New(truckbook.WithSqliteDB(db), truckbook.WithLogger(logger))
//	if err != nil { ... }
//	defer tb.Close()
//	http.ListenAndServe(":8080", tb.Handler())
func New(opts ...Option) (*TruckBook, error) {
	t := &TruckBook{
		logger:     logutil.NoopLogger(),
		cookieName: "session_token",
	}
	for _, opt := range opts {
		opt(t)
	}

	t.logger.Info("starting truckbook")

	var err error
	switch {
	case t.db != nil && t.pool != nil:
		return nil, errors.New("truckbook: choose one of WithSqliteDB and WithPostgresPool")
	case t.db != nil:
		t.Store, err = store.NewSqlite(t.db, t.logger, t.storeOpts)
	case t.pool != nil:
		t.Store, err = store.NewPostgres(t.pool, t.databaseURL, t.logger, t.storeOpts)
	default:
		return nil, errors.New("truckbook: no database configured")
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(context.Background(), t.logger, "unable to build stores", err)
	}
	t.logger.Debug("truckbook stores loaded", "dbType", t.Store.DBType())

	if t.hasher == nil {
		t.hasher = passwd.NewChain(&passwd.Bcrypt{Cost: passwd.DefaultCost})
	}
	authOpts := []credential.Option{credential.WithLogger(t.logger)}
	if t.observer != nil {
		authOpts = append(authOpts, credential.WithObserver(t.observer))
	}
	if t.tracerProvider != nil {
		authOpts = append(authOpts, credential.WithTracer(t.tracerProvider))
	}
	t.Authority, err = credential.New(t.Store.Accounts, t.Store.Sessions, t.hasher, authOpts...)
	if err != nil {
		t.Store.Close()
		return nil, logutil.LogAndWrapErr(context.Background(), t.logger, "unable to build credential authority", err)
	}

	flashes := flash.NewCarrier(t.secureCookies)
	t.mux = http.NewServeMux()

	t.Enforcer = enforcer.NewEnforcer(t.logger, t.mux, t.Authority, t.Store.Tokens, flashes, &enforcer.Config{
		SessionCookieName:       t.cookieName,
		SessionCookieSecure:     t.secureCookies,
		RedirectOnAuthErrorPath: "/login",
	})

	if t.tracerProvider != nil {
		t.Enforcer.SetTracerProvider(t.tracerProvider)
	}

	b := builtins.New(t.logger, t.Enforcer, t.Authority, t.Store.Tokens, flashes, builtins.CookieConfig{
		Name:   t.cookieName,
		Secure: t.secureCookies,
		TTL:    t.Store.Sessions.TTL(),
	})
	b.LoadAllPolicies()
	if err := b.LoadAllRoutes(); err != nil {
		t.Store.Close()
		return nil, logutil.LogAndWrapErr(context.Background(), t.logger, "unable to register routes", err)
	}
	t.logger.Info("truckbook routes loaded", "api", t.Store.Tokens != nil)

	return t, nil
}

// Handler serves every registered route.
func (t *TruckBook) Handler() http.Handler {
	return t.mux
}

// Close stops background work. It does not close the database.
func (t *TruckBook) Close() error {
	if t.Store == nil {
		return nil
	}
	t.logger.Info("stopping truckbook")
	return t.Store.Close()
}
