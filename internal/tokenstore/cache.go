package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/bluele/gcache"
)

// revocationCacheSize bounds how many unexpired revocations are held. Each
// entry expires with the token it revokes.
const revocationCacheSize = 100_000

// ErrRevocationListFull is returned by RevokeToken when every slot holds a
// revocation that has not expired yet. A live revocation is never dropped to
// make room.
var ErrRevocationListFull = errors.New("token revocation list is full")

type cacheTokenStore struct {
	*baseTokenStore
	revoked  gcache.Cache // jti -> struct{}
	capacity int
	mu       sync.Mutex // serialises the capacity check with the insert
}

// NewInMemory returns a token store that keeps its revocation list in
// memory. Revocations do not survive a restart.
func NewInMemory(logger *slog.Logger, signingSecret string, tokenDuration time.Duration) *cacheTokenStore {
	return newCacheTokenStore(logger, signingSecret, tokenDuration, revocationCacheSize)
}

func newCacheTokenStore(logger *slog.Logger, signingSecret string, tokenDuration time.Duration, capacity int) *cacheTokenStore {
	base := newBase(logger, signingSecret, tokenDuration)
	return &cacheTokenStore{
		baseTokenStore: base,
		// The simple cache only evicts expired entries, unlike LRU/LFU/ARC
		revoked:  gcache.New(capacity).Simple().Build(),
		capacity: capacity,
	}
}

func (t *cacheTokenStore) IsRevoked(ctx context.Context, tokenPayload *TokenPayload) (bool, error) {
	_, err := t.revoked.Get(tokenPayload.ID)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *cacheTokenStore) RevokeToken(ctx context.Context, token *TokenPayload) error {
	ttl := t.tokenDuration
	if token.ExpiresAt != nil {
		ttl = token.ExpiresAt.Sub(t.now())
	}
	if ttl <= 0 {
		// Already expired, nothing to remember
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.revoked.Has(token.ID) {
		return nil
	}
	// Len(true) skips entries that have expired but not been purged yet
	if t.revoked.Len(false) >= t.capacity && t.revoked.Len(true) >= t.capacity {
		return logutil.LogAndWrapErr(ctx, t.log, "unable to revoke token", ErrRevocationListFull, "jti", token.ID)
	}

	t.log.DebugContext(ctx, "revoking token", "jti", token.ID, "account_id", token.Subject)
	return t.revoked.SetWithExpire(token.ID, struct{}{}, ttl)
}

// RefreshTokenStr calls the generic algorithm from the embedded baseTokenStore,
// passing itself as the implementation for the state checking.
func (t *cacheTokenStore) RefreshTokenStr(ctx context.Context, oldTokenStr string) (string, error) {
	return t.baseTokenStore.refreshToken(ctx, t, oldTokenStr)
}
