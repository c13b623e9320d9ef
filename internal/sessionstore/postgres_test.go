package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*postgresSessionStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	s := NewWithPostgresStore(mock, NoopLogger(), Config{TTL: time.Hour})
	t.Cleanup(func() {
		_ = s.Close()
		mock.Close()
	})
	return s, mock
}

func TestPostgresSessionStore_Create(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	accountID := uuid.New()

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), accountID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sesh, err := s.Create(context.Background(), accountID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, accountID, sesh.AccountID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionStore_Get(t *testing.T) {
	t.Run("live session", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		accountID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT id, account_id, expires_at, created_at, ip_address, user_agent`).
			WithArgs("tok", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "expires_at", "created_at", "ip_address", "user_agent"}).
				AddRow("tok", accountID, now.Add(time.Hour), now, (*string)(nil), (*string)(nil)))

		sesh, err := s.Get(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, accountID, sesh.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing or expired", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		mock.ExpectQuery(`SELECT id, account_id`).
			WithArgs("tok", pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.Get(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("driver failure", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		mock.ExpectQuery(`SELECT id, account_id`).
			WithArgs("tok", pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		_, err := s.Get(context.Background(), "tok")
		var dbErr *models.DatabaseError
		assert.True(t, errors.As(err, &dbErr))
		assert.NotErrorIs(t, err, ErrSessionExpired)
	})
}

func TestPostgresSessionStore_DeleteAndCleanup(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	accountID := uuid.New()

	mock.ExpectExec(`DELETE FROM sessions WHERE id`).
		WithArgs("tok").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM sessions WHERE account_id`).
		WithArgs(accountID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "tok"))
	require.NoError(t, s.DeleteAccount(ctx, accountID))
	require.NoError(t, s.CleanupExpired(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
