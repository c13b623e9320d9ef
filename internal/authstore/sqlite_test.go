package authstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Ryan-Har/truckbook/database"
	"github.com/Ryan-Har/truckbook/internal/db"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "$2a$04$C6UzMDM.H6dfI/f/IKxGhuJZk.UZbGtU3c3QXmBGKfE3YfNtXZ4uO"

func NoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSqliteDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "accounts.db")+"?_busy_timeout=5000&_journal_mode=WAL")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, database.RunSqliteMigrations(conn))
	return conn
}

func TestSqliteAuthStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewWithSqliteStore(newTestSqliteDB(t), NoopLogger())

	created, err := s.CreateAccount(ctx, models.CreateAccountParams{Email: "a@x.com", PasswordHash: testHash})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := s.GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, testHash, byEmail.PasswordHash)

	byID, err := s.GetAccountByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
}

func TestSqliteAuthStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewWithSqliteStore(newTestSqliteDB(t), NoopLogger())

	_, err := s.GetAccountByEmail(ctx, "ghost@x.com")
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))

	_, err = s.GetAccountByID(ctx, uuid.New())
	require.True(t, errors.As(err, &nf))

	_, err = s.GetAccountByID(ctx, uuid.Nil)
	var vErr *models.ValidationError
	require.True(t, errors.As(err, &vErr))
}

func TestSqliteAuthStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewWithSqliteStore(newTestSqliteDB(t), NoopLogger())

	_, err := s.CreateAccount(ctx, models.CreateAccountParams{Email: "a@x.com", PasswordHash: testHash})
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, models.CreateAccountParams{Email: "a@x.com", PasswordHash: testHash})
	var dup *db.DuplicateKeyError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "email", dup.Field)
	var dbErr *models.DatabaseError
	assert.True(t, errors.As(err, &dbErr))
}

func TestSqliteAuthStore_ConcurrentCreateOneWins(t *testing.T) {
	ctx := context.Background()
	s := NewWithSqliteStore(newTestSqliteDB(t), NoopLogger())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.CreateAccount(ctx, models.CreateAccountParams{Email: "race@x.com", PasswordHash: testHash})
		}()
	}
	wg.Wait()

	var ok, dups int
	for _, err := range errs {
		var dup *db.DuplicateKeyError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &dup):
			dups++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dups)
}

func TestSqliteAuthStore_UpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	s := NewWithSqliteStore(newTestSqliteDB(t), NoopLogger())

	acc, err := s.CreateAccount(ctx, models.CreateAccountParams{Email: "a@x.com", PasswordHash: testHash})
	require.NoError(t, err)

	newHash := "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$a2V5"
	require.NoError(t, s.UpdatePasswordHash(ctx, acc.ID, newHash))

	got, err := s.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, newHash, got.PasswordHash)

	err = s.UpdatePasswordHash(ctx, acc.ID, "plaintext")
	var vErr *models.ValidationError
	assert.True(t, errors.As(err, &vErr))

	err = s.UpdatePasswordHash(ctx, uuid.New(), newHash)
	var nf *models.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestSqliteAuthStore_RejectsPlaintext(t *testing.T) {
	s := NewWithSqliteStore(newTestSqliteDB(t), NoopLogger())

	_, err := s.CreateAccount(context.Background(), models.CreateAccountParams{Email: "a@x.com", PasswordHash: "hunter2"})
	var tErr *models.TransformationError
	assert.True(t, errors.As(err, &tErr))
}

func TestSqliteAuthStore_DriverFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at, updated_at FROM accounts`).
		WithArgs("a@x.com").
		WillReturnError(errors.New("database is locked"))

	s := NewWithSqliteStore(conn, NoopLogger())
	_, err = s.GetAccountByEmail(context.Background(), "a@x.com")

	var dbErr *models.DatabaseError
	require.True(t, errors.As(err, &dbErr))
	var nf *models.NotFoundError
	assert.False(t, errors.As(err, &nf))
	assert.NoError(t, mock.ExpectationsWereMet())
}
