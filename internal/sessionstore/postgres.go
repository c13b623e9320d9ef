package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the part of *pgxpool.Pool the postgres session store uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresSessionStore struct {
	*baseSessionStore
	pool pgxPool
}

func (s *postgresSessionStore) Create(ctx context.Context, accountID uuid.UUID, ipAddress, userAgent *string) (*models.Session, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "create session", "backend", "postgres")()

	if err := s.checkCtx(ctx, "creation"); err != nil {
		return nil, err
	}

	sesh, err := s.createSession(ctx, accountID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, account_id, expires_at, created_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sesh.ID, sesh.AccountID, sesh.ExpiresAt, sesh.CreatedAt, sesh.IpAddress, sesh.UserAgent,
	)
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to create session",
			models.NewDatabaseError(err))
	}
	return sesh, nil
}

func (s *postgresSessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "get session", "backend", "postgres")()

	if err := s.checkCtx(ctx, "get"); err != nil {
		return nil, err
	}

	var sesh models.Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, account_id, expires_at, created_at, ip_address, user_agent
		FROM sessions
		WHERE id = $1 AND expires_at > $2`,
		sessionID, s.now(),
	).Scan(&sesh.ID, &sesh.AccountID, &sesh.ExpiresAt, &sesh.CreatedAt, &sesh.IpAddress, &sesh.UserAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newSessionExpiredError(sessionID)
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to get session",
			models.NewDatabaseError(err), "session", tokenHint(sessionID))
	}
	return &sesh, nil
}

func (s *postgresSessionStore) Delete(ctx context.Context, sessionID string) error {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "delete session", "backend", "postgres")()

	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, "failed to delete session",
			models.NewDatabaseError(err), "session", tokenHint(sessionID))
	}
	return nil
}

func (s *postgresSessionStore) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "delete account sessions", "backend", "postgres")()

	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, "failed to delete account sessions",
			models.NewDatabaseError(err), "account_id", accountID)
	}
	return nil
}

func (s *postgresSessionStore) CleanupExpired(ctx context.Context) error {
	if err := s.checkCtx(ctx, "cleanup"); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return models.NewDatabaseError(err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.DebugContext(ctx, "removed expired sessions", "count", n, "backend", "postgres")
	}
	return nil
}

// Close stops the cleanup worker. The pool belongs to the caller.
func (s *postgresSessionStore) Close() error {
	s.stopCleanupWorker()
	return nil
}
