package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Ryan-Har/truckbook/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func NoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backend pairs a store with a way to move its clock.
type backend struct {
	name  string
	store Store
	base  *baseSessionStore
}

func newBackends(t *testing.T) []backend {
	t.Helper()
	cfg := Config{TTL: time.Hour, CleanupInterval: time.Hour}

	mem := NewInMemory(NoopLogger(), cfg)

	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "sessions.db")+"?_busy_timeout=5000")
	require.NoError(t, err)
	require.NoError(t, database.RunSqliteMigrations(conn))
	sq := NewWithSqliteStore(conn, NoopLogger(), cfg)

	bolt, err := NewBolt(filepath.Join(t.TempDir(), "sessions.bolt"), NoopLogger(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = mem.Close()
		_ = sq.Close()
		_ = bolt.Close()
		_ = conn.Close()
	})

	return []backend{
		{"memory", mem, mem.baseSessionStore},
		{"sqlite", sq, sq.baseSessionStore},
		{"bolt", bolt, bolt.baseSessionStore},
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			accountID := uuid.New()
			ip, ua := "10.1.2.3", "curl/8"

			sesh, err := b.store.Create(ctx, accountID, &ip, &ua)
			require.NoError(t, err)
			assert.Len(t, sesh.ID, DefaultTokenLength*2)
			assert.Equal(t, accountID, sesh.AccountID)
			assert.WithinDuration(t, time.Now().Add(time.Hour), sesh.ExpiresAt, 2*time.Second)

			got, err := b.store.Get(ctx, sesh.ID)
			require.NoError(t, err)
			assert.Equal(t, accountID, got.AccountID)
			require.NotNil(t, got.IpAddress)
			assert.Equal(t, ip, *got.IpAddress)

			require.NoError(t, b.store.Delete(ctx, sesh.ID))
			_, err = b.store.Get(ctx, sesh.ID)
			assert.ErrorIs(t, err, ErrSessionExpired)

			// Revoking twice, or revoking garbage, is fine
			require.NoError(t, b.store.Delete(ctx, sesh.ID))
			require.NoError(t, b.store.Delete(ctx, "never-issued"))
		})
	}
}

func TestStore_UnknownToken(t *testing.T) {
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.store.Get(context.Background(), "deadbeef")
			var expired *SessionExpiredError
			assert.True(t, errors.As(err, &expired))
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			sesh, err := b.store.Create(ctx, uuid.New(), nil, nil)
			require.NoError(t, err)

			b.base.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
			defer func() { b.base.now = time.Now }()

			_, err = b.store.Get(ctx, sesh.ID)
			assert.ErrorIs(t, err, ErrSessionExpired)

			require.NoError(t, b.store.CleanupExpired(ctx))
			b.base.now = time.Now
			_, err = b.store.Get(ctx, sesh.ID)
			assert.ErrorIs(t, err, ErrSessionExpired, "cleanup should have removed the entry")
		})
	}
}

func TestStore_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			target, other := uuid.New(), uuid.New()
			s1, err := b.store.Create(ctx, target, nil, nil)
			require.NoError(t, err)
			s2, err := b.store.Create(ctx, target, nil, nil)
			require.NoError(t, err)
			keep, err := b.store.Create(ctx, other, nil, nil)
			require.NoError(t, err)

			require.NoError(t, b.store.DeleteAccount(ctx, target))

			for _, id := range []string{s1.ID, s2.ID} {
				_, err := b.store.Get(ctx, id)
				assert.ErrorIs(t, err, ErrSessionExpired)
			}
			_, err = b.store.Get(ctx, keep.ID)
			assert.NoError(t, err)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.store.Create(ctx, uuid.New(), nil, nil)
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, b.store.Delete(ctx, "x"), context.Canceled)
		})
	}
}

func TestStore_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					sesh, err := b.store.Create(ctx, uuid.New(), nil, nil)
					if !assert.NoError(t, err) {
						return
					}
					_, err = b.store.Get(ctx, sesh.ID)
					assert.NoError(t, err)
					assert.NoError(t, b.store.Delete(ctx, sesh.ID))
				}()
			}
			wg.Wait()
		})
	}
}

func TestCleanupWorkerStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewInMemory(NoopLogger(), Config{CleanupInterval: 5 * time.Millisecond})
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())
	// Closing twice must not panic on the stop channel
	require.NoError(t, s.Close())
}

func TestBolt_SurvivesReopen(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	path := filepath.Join(t.TempDir(), "sessions.bolt")
	ctx := context.Background()

	s, err := NewBolt(path, NoopLogger(), Config{})
	require.NoError(t, err)
	sesh, err := s.Create(ctx, uuid.New(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewBolt(path, NoopLogger(), Config{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, sesh.ID)
	require.NoError(t, err)
	assert.Equal(t, sesh.AccountID, got.AccountID)
	assert.Equal(t, sesh.ExpiresAt.Unix(), got.ExpiresAt.Unix())
	assert.Nil(t, got.UserAgent)
}

func TestBoltDecode_Truncated(t *testing.T) {
	_, err := boltDecode([]byte("k"), []byte{1, 2, 3})
	assert.Error(t, err)
}
