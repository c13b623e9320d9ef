package authstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/internal/db"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the part of *pgxpool.Pool the postgres stores use.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type postgresAuthStore struct {
	pool pgxPool
	log  *slog.Logger
}

const accountColumns = `id, email, password_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *postgresAuthStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *postgresAuthStore) CreateAccount(ctx context.Context, args models.CreateAccountParams) (*models.Account, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "CreateAccount", "backend", "postgres")()
	errMsg := "failed to create account"

	if args.Email == "" || !passwd.IsHashed(args.PasswordHash) {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewTransformationError("email empty or password not hashed"),
		)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns,
		uuid.New(), args.Email, args.PasswordHash,
	)
	account, err := scanAccount(row)
	if err != nil {
		if dup, err := db.WrapErrorIfDuplicateConstraint(err); dup {
			return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
		}
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
	}
	return account, nil
}

func (s *postgresAuthStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "GetAccountByEmail", "backend", "postgres")()
	errMsg := "failed to get account by email"

	account, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewNotFoundError(email))
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
	}
	return account, nil
}

func (s *postgresAuthStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "GetAccountByID", "backend", "postgres", "ID", id.String())()
	errMsg := "failed to get account by id"

	if id == uuid.Nil {
		return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewValidationError("id not set"))
	}

	account, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewNotFoundError(id.String()))
	}
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
	}
	return account, nil
}

func (s *postgresAuthStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed sql query", "method", "UpdatePasswordHash", "backend", "postgres", "ID", id.String())()
	errMsg := "failed to update password hash"

	if !passwd.IsHashed(hash) {
		return logutil.LogAndWrapErr(ctx, s.log, errMsg,
			models.NewValidationError("provided password is not yet hashed"))
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, errMsg, models.NewDatabaseError(err))
	}
	if tag.RowsAffected() == 0 {
		return logutil.DebugAndWrapErr(ctx, s.log, errMsg, models.NewNotFoundError(id.String()))
	}
	return nil
}
