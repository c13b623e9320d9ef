package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/internal/db/sqliteDB"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
)

// NewInMemory returns a process-local store. Sessions are lost on restart.
func NewInMemory(logger *slog.Logger, cfg Config) *inMemorySessionStore {
	cfg = cfg.withDefaults()
	s := &inMemorySessionStore{
		baseSessionStore: newBase(logger, cfg),
		sessions:         make(map[string]*models.Session),
	}
	s.startCleanupWorker(s, cfg.CleanupInterval)
	return s
}

func NewWithSqliteStore(db *sql.DB, logger *slog.Logger, cfg Config) *sqliteSessionStore {
	cfg = cfg.withDefaults()
	s := &sqliteSessionStore{
		baseSessionStore: newBase(logger, cfg),
		db:               db,
		queries:          sqliteDB.New(db),
	}
	s.startCleanupWorker(s, cfg.CleanupInterval)
	return s
}

func NewWithPostgresStore(pool pgxPool, logger *slog.Logger, cfg Config) *postgresSessionStore {
	cfg = cfg.withDefaults()
	s := &postgresSessionStore{
		baseSessionStore: newBase(logger, cfg),
		pool:             pool,
	}
	s.startCleanupWorker(s, cfg.CleanupInterval)
	return s
}

// Store defines the interface for a session store. Implementations are safe
// for concurrent use; concurrent writes to one token are last-write-wins.
type Store interface {
	// Create issues a new session for accountID that expires after the store TTL.
	// ipAddress and userAgent are optional.
	Create(ctx context.Context, accountID uuid.UUID, ipAddress, userAgent *string) (*models.Session, error)

	// Get returns the live session for sessionID. Unknown and expired tokens
	// both yield *SessionExpiredError.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// Delete revokes a session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, sessionID string) error

	// DeleteAccount revokes every session belonging to accountID.
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error

	// CleanupExpired removes all expired sessions from the store. A background
	// worker calls it periodically.
	CleanupExpired(ctx context.Context) error

	// TTL reports the lifetime of newly issued sessions.
	TTL() time.Duration

	// Close stops the cleanup worker and releases backend resources it owns.
	Close() error
}

var ErrSessionExpired = &SessionExpiredError{}

// SessionExpiredError is returned for unknown, revoked or expired tokens alike.
type SessionExpiredError struct {
	ID string
}

func newSessionExpiredError(id string) error {
	return &SessionExpiredError{ID: tokenHint(id)}
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session with ID '%s' has expired", e.ID)
}

func (e *SessionExpiredError) Is(target error) bool {
	_, ok := target.(*SessionExpiredError)
	return ok
}
