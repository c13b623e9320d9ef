package authstore

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/Ryan-Har/truckbook/internal/db/sqliteDB"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
)

func NewWithSqliteStore(db *sql.DB, logger *slog.Logger) *sqliteAuthStore {
	return &sqliteAuthStore{
		db:      db,
		queries: sqliteDB.New(db),
		log:     logger,
	}
}

func NewWithPostgresStore(pool pgxPool, logger *slog.Logger) *postgresAuthStore {
	return &postgresAuthStore{
		pool: pool,
		log:  logger,
	}
}

// Store defines a unified interface for interacting with the account datastore.
// It abstracts storage-specific implementations (SQLite, Postgres) behind consistent
// operations used by the credential authority.
//
// All methods must return meaningful error types as defined in the models package,
// including ValidationError, NotFoundError, TransformationError, and DatabaseError.
// Emails passed in are expected to be normalized already.
type Store interface {
	// CreateAccount inserts a new account. A taken email surfaces as a DatabaseError
	// wrapping *db.DuplicateKeyError; the unique index is the only arbiter.
	CreateAccount(ctx context.Context, args models.CreateAccountParams) (*models.Account, error)

	// GetAccountByEmail returns NotFoundError when no account holds email.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetAccountByID returns NotFoundError when no account has id.
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// UpdatePasswordHash replaces the stored secret. hash must already be derived.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	Ping(ctx context.Context) error
}
