package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Ryan-Har/truckbook/internal/db/sqliteDB"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
)

type sqliteSessionStore struct {
	*baseSessionStore
	db      *sql.DB
	queries *sqliteDB.Queries
}

func (s *sqliteSessionStore) Create(ctx context.Context, accountID uuid.UUID, ipAddress, userAgent *string) (*models.Session, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "create session")()

	if err := s.checkCtx(ctx, "creation"); err != nil {
		return nil, err
	}

	sesh, err := s.createSession(ctx, accountID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.CreateSession(ctx, sqliteDB.CreateSessionParamsFromModel(*sesh))
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to create session",
			models.NewDatabaseError(err))
	}

	response, err := row.ToSessionModel()
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to create session",
			models.NewTransformationError(err.Error()))
	}
	return &response, nil
}

func (s *sqliteSessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "get session", "session", tokenHint(sessionID))()

	if err := s.checkCtx(ctx, "get"); err != nil {
		return nil, err
	}

	row, err := s.queries.GetValidSession(ctx, sqliteDB.GetValidSessionParams{
		ID:  sessionID,
		Now: s.now().Unix(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newSessionExpiredError(sessionID)
		}
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to get session",
			models.NewDatabaseError(err),
			"session", tokenHint(sessionID))
	}

	response, err := row.ToSessionModel()
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to get session",
			models.NewTransformationError(err.Error()))
	}
	return &response, nil
}

func (s *sqliteSessionStore) Delete(ctx context.Context, sessionID string) error {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "delete session", "session", tokenHint(sessionID))()

	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	if err := s.queries.DeleteSession(ctx, sessionID); err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, "failed to delete session",
			models.NewDatabaseError(err),
			"session", tokenHint(sessionID))
	}
	return nil
}

func (s *sqliteSessionStore) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "delete account sessions", "account_id", accountID)()

	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	if err := s.queries.DeleteSessionsByAccountID(ctx, accountID.String()); err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, "failed to delete account sessions",
			models.NewDatabaseError(err))
	}
	return nil
}

func (s *sqliteSessionStore) CleanupExpired(ctx context.Context) error {
	if err := s.checkCtx(ctx, "cleanup"); err != nil {
		return err
	}

	n, err := s.queries.DeleteExpiredSessions(ctx, s.now().Unix())
	if err != nil {
		return models.NewDatabaseError(err)
	}
	if n > 0 {
		s.log.DebugContext(ctx, "removed expired sessions", "count", n)
	}
	return nil
}

// Close stops the cleanup worker. The *sql.DB belongs to the caller.
func (s *sqliteSessionStore) Close() error {
	s.stopCleanupWorker()
	return nil
}
