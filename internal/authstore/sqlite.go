package authstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/internal/db"
	"github.com/Ryan-Har/truckbook/internal/db/sqliteDB"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/google/uuid"
)

type sqliteAuthStore struct {
	db      *sql.DB
	queries *sqliteDB.Queries
	log     *slog.Logger
}

func (s *sqliteAuthStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteAuthStore) CreateAccount(ctx context.Context, args models.CreateAccountParams) (*models.Account, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "CreateAccount")()
	errMsg := "failed to create account"

	params, err := sqliteDB.CreateAccountParamsFromModel(args)
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewTransformationError(err.Error()),
		)
	}

	row, err := s.queries.CreateAccount(ctx, params)
	if err != nil {
		if dup, err := db.WrapErrorIfDuplicateConstraint(err); dup {
			// An expected outcome, not an operational failure
			return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
		}
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewDatabaseError(err))
	}

	account, err := row.ToAccountModel()
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewTransformationError(err.Error()),
		)
	}
	return &account, nil
}

func (s *sqliteAuthStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "GetAccountByEmail")()
	errMsg := "failed to get account by email"

	row, err := s.queries.GetAccountByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewNotFoundError(email))
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewDatabaseError(err),
		)
	}

	account, err := row.ToAccountModel()
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewTransformationError(err.Error()),
		)
	}
	return &account, nil
}

func (s *sqliteAuthStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "GetAccountByID", "ID", id.String())()
	errMsg := "failed to get account by id"

	if id == uuid.Nil {
		return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg,
			models.NewValidationError("id not set"),
		)
	}

	row, err := s.queries.GetAccountByID(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewNotFoundError(id.String()))
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewDatabaseError(err),
		)
	}

	account, err := row.ToAccountModel()
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewTransformationError(err.Error()),
		)
	}
	return &account, nil
}

func (s *sqliteAuthStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "UpdatePasswordHash", "ID", id.String())()
	errMsg := "failed to update password hash"

	if !passwd.IsHashed(hash) {
		return logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewValidationError("provided password is not yet hashed"),
		)
	}

	n, err := s.queries.UpdateAccountPasswordHash(ctx, sqliteDB.UpdateAccountPasswordHashParams{
		PasswordHash: hash,
		ID:           id.String(),
	})
	if err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
	}
	if n == 0 {
		return logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewNotFoundError(id.String()))
	}
	return nil
}
