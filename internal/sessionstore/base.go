package sessionstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
)

const (
	DefaultTokenLength     = 32 // bytes, hex encoded to 64 chars
	DefaultCleanupInterval = 10 * time.Minute
)

// Config tunes token issuance and expiry for every backend.
type Config struct {
	TokenLength     int
	TTL             time.Duration
	CleanupInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.TokenLength <= 0 {
		c.TokenLength = DefaultTokenLength
	}
	if c.TTL <= 0 {
		c.TTL = models.DefaultSessionTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}

type baseSessionStore struct {
	log           *slog.Logger
	tokenLength   int           // number of bytes used when generating tokens
	tokenDuration time.Duration // amount of time tokens are active for
	now           func() time.Time
	stopCh        chan struct{} // channel used to stop the cleanup of expired sessions
	stopOnce      sync.Once
	workerDone    chan struct{}
}

func newBase(logger *slog.Logger, cfg Config) *baseSessionStore {
	cfg = cfg.withDefaults()
	return &baseSessionStore{
		log:           logger,
		tokenLength:   cfg.TokenLength,
		tokenDuration: cfg.TTL,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// TTL reports how long newly issued sessions live.
func (s *baseSessionStore) TTL() time.Duration {
	return s.tokenDuration
}

// createSession generates a models.Session struct based on the provided input
// A secure token is generated based on the token length stored in baseSessionStore
// Returns a wrapped error if generating the token fails
func (s *baseSessionStore) createSession(ctx context.Context, accountID uuid.UUID, ipAddress *string, userAgent *string) (*models.Session, error) {
	now := s.now()

	sesID, err := generateSecureToken(s.tokenLength)
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to generate secure token", err)
	}

	return &models.Session{
		ID:        sesID,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenDuration),
		IpAddress: ipAddress,
		UserAgent: userAgent,
	}, nil
}

// helper to generate secure token of a given length
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// tokenHint is the loggable prefix of a session token.
func tokenHint(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// checkCtx returns ctx.Err() when the context is already done.
func (s *baseSessionStore) checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "context cancelled during session "+op, "error", ctx.Err())
		return ctx.Err()
	default:
		return nil
	}
}

// expirable is implemented by session stores that support
// automatic cleanup of expired sessions. It allows the
// baseSessionStore to initiate cleanup logic without knowing
// the specific details of how each store handles it.
type expirable interface {
	CleanupExpired(ctx context.Context) error
}

// startCleanupWorker starts a goroutine that periodically cleans up expired sessions.
// The interval specifies how often the cleanup should run.
func (s *baseSessionStore) startCleanupWorker(exp expirable, interval time.Duration) {
	s.log.Debug("starting session cleanup worker", "interval", interval)
	ticker := time.NewTicker(interval)
	s.workerDone = make(chan struct{})

	go func() {
		defer close(s.workerDone)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cleanupCtx, cancel := context.WithTimeout(context.Background(), interval/2) // Give it a max half the interval
				err := exp.CleanupExpired(cleanupCtx)
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					s.log.Error("failed to cleanup sessions", "err", err)
				}
				cancel()

			case <-s.stopCh:
				s.log.Debug("stopping session cleanup worker")
				return
			}
		}
	}()
}

// stopCleanupWorker signals the worker and waits for it to exit. Safe to call
// more than once, and when no worker was started.
func (s *baseSessionStore) stopCleanupWorker() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.workerDone != nil {
			<-s.workerDone
		}
	})
}
