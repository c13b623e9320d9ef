// Package store assembles the account, session and token stores for one
// database backend. The caller owns the database handle; Close releases only
// what the Store itself started.
package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/database"
	"github.com/Ryan-Har/truckbook/internal/authstore"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/internal/sessionstore"
	"github.com/Ryan-Har/truckbook/internal/tokenstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
)

// SessionBackend selects where sessions live.
type SessionBackend string

const (
	SessionsInMemory SessionBackend = "memory"
	SessionsDatabase SessionBackend = "database"
	SessionsBolt     SessionBackend = "bolt"
)

// Options configures the stores built on top of the database.
type Options struct {
	Sessions SessionBackend
	Session  sessionstore.Config
	BoltPath string

	// TokenSecret signs API tokens. Empty leaves Tokens nil.
	TokenSecret string
	TokenTTL    time.Duration

	// SkipMigrations leaves the schema alone, for deployments that run
	// `truckbook migrate` separately.
	SkipMigrations bool
}

type Store struct {
	log      *slog.Logger
	dbType   DBType
	Accounts authstore.Store
	Sessions sessionstore.Store
	Tokens   tokenstore.TokenStore
}

// NewSqlite migrates db and builds the stores on it.
//
// Example:
//
//	db, _ := sql.Open("sqlite3", "file:truckbook.db?_busy_timeout=5000")
//	s, err := store.NewSqlite(db, logger, store.Options{Sessions: store.SessionsDatabase})
func NewSqlite(db *sql.DB, logger *slog.Logger, opts Options) (*Store, error) {
	s := &Store{log: logger, dbType: DBTypeSQLite}

	if !opts.SkipMigrations {
		if err := s.runMigrations(func() error { return database.RunSqliteMigrations(db) }); err != nil {
			return nil, err
		}
	}

	s.Accounts = authstore.NewWithSqliteStore(db, logger)

	var err error
	switch opts.Sessions {
	case SessionsDatabase, "":
		s.Sessions = sessionstore.NewWithSqliteStore(db, logger, opts.Session)
	default:
		s.Sessions, err = s.standaloneSessions(opts)
	}
	if err != nil {
		return nil, err
	}

	s.Tokens = newTokens(logger, opts)
	return s, nil
}

// NewPostgres migrates the database at databaseURL and builds the stores on
// pool. pool must point at the same database.
func NewPostgres(pool *pgxpool.Pool, databaseURL string, logger *slog.Logger, opts Options) (*Store, error) {
	s := &Store{log: logger, dbType: DBTypePostgres}

	if !opts.SkipMigrations {
		if err := s.runMigrations(func() error { return database.RunPostgresMigrations(databaseURL) }); err != nil {
			return nil, err
		}
	}

	s.Accounts = authstore.NewWithPostgresStore(pool, logger)

	var err error
	switch opts.Sessions {
	case SessionsDatabase, "":
		s.Sessions = sessionstore.NewWithPostgresStore(pool, logger, opts.Session)
	default:
		s.Sessions, err = s.standaloneSessions(opts)
	}
	if err != nil {
		return nil, err
	}

	s.Tokens = newTokens(logger, opts)
	return s, nil
}

// standaloneSessions builds the backends that do not share the account database.
func (s *Store) standaloneSessions(opts Options) (sessionstore.Store, error) {
	switch opts.Sessions {
	case SessionsInMemory:
		return sessionstore.NewInMemory(s.log, opts.Session), nil
	case SessionsBolt:
		bolt, err := sessionstore.NewBolt(opts.BoltPath, s.log, opts.Session)
		if err != nil {
			return nil, oops.Code("SESSION_STORE_OPEN_FAILED").With("path", opts.BoltPath).Wrap(err)
		}
		return bolt, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").Errorf("unknown session backend %q", opts.Sessions)
	}
}

func newTokens(logger *slog.Logger, opts Options) tokenstore.TokenStore {
	if opts.TokenSecret == "" {
		return nil
	}
	return tokenstore.NewInMemory(logger, opts.TokenSecret, opts.TokenTTL)
}

func (s *Store) runMigrations(run func() error) error {
	defer logutil.NewTimingLogger(context.Background(), s.log, time.Now(), "ran database migrations", "dbType", s.dbType)()
	if err := run(); err != nil {
		return logutil.LogAndWrapErr(context.Background(), s.log, "unable to run migrations", err, "dbType", s.dbType)
	}
	return nil
}

// DBType reports the account database backend.
func (s *Store) DBType() DBType {
	return s.dbType
}

// Ping reports whether the account database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Accounts.Ping(ctx)
}

// Close stops the session cleanup worker and closes any session file. The
// database handle is left open.
func (s *Store) Close() error {
	var errs []error
	if s.Sessions != nil {
		errs = append(errs, s.Sessions.Close())
	}
	return errors.Join(errs...)
}
