package sessionstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// boltBucketSessions holds one entry per token, keyed by the token itself.
const boltBucketSessions = "sessions"

const (
	boltTimeLen   = 8
	boltIDLen     = 16
	boltStrLenLen = 2
	boltFixedLen  = 2*boltTimeLen + boltIDLen + 2*boltStrLenLen
)

type boltSessionStore struct {
	*baseSessionStore
	db *bbolt.DB
}

// NewBolt opens (or creates) a bbolt file at path and prunes sessions that
// expired while the process was down.
func NewBolt(path string, logger *slog.Logger, cfg Config) (*boltSessionStore, error) {
	cfg = cfg.withDefaults()
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session db %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketSessions))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	s := &boltSessionStore{
		baseSessionStore: newBase(logger, cfg),
		db:               db,
	}
	if err := s.CleanupExpired(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pruning sessions: %w", err)
	}
	s.startCleanupWorker(s, cfg.CleanupInterval)
	return s, nil
}

func boltEncode(s *models.Session) []byte {
	var ip, ua string
	if s.IpAddress != nil {
		ip = *s.IpAddress
	}
	if s.UserAgent != nil {
		ua = *s.UserAgent
	}
	// Header values are attacker controlled; keep them inside the length prefix.
	ip = truncate(ip, 0xffff)
	ua = truncate(ua, 0xffff)

	data := make([]byte, boltFixedLen+len(ip)+len(ua))
	off := 0
	binary.BigEndian.PutUint64(data[off:], uint64(s.ExpiresAt.Unix()))
	off += boltTimeLen
	binary.BigEndian.PutUint64(data[off:], uint64(s.CreatedAt.Unix()))
	off += boltTimeLen
	copy(data[off:], s.AccountID[:])
	off += boltIDLen
	binary.BigEndian.PutUint16(data[off:], uint16(len(ip)))
	off += boltStrLenLen
	off += copy(data[off:], ip)
	binary.BigEndian.PutUint16(data[off:], uint16(len(ua)))
	off += boltStrLenLen
	copy(data[off:], ua)
	return data
}

func boltDecode(token, data []byte) (*models.Session, error) {
	if len(data) < boltFixedLen {
		return nil, fmt.Errorf("length of the data is less than expected: got %d", len(data))
	}

	s := &models.Session{ID: string(token)}
	off := 0
	s.ExpiresAt = time.Unix(int64(binary.BigEndian.Uint64(data[off:])), 0)
	off += boltTimeLen
	s.CreatedAt = time.Unix(int64(binary.BigEndian.Uint64(data[off:])), 0)
	off += boltTimeLen
	copy(s.AccountID[:], data[off:off+boltIDLen])
	off += boltIDLen

	readStr := func() (*string, error) {
		if len(data) < off+boltStrLenLen {
			return nil, errors.New("truncated session entry")
		}
		n := int(binary.BigEndian.Uint16(data[off:]))
		off += boltStrLenLen
		if len(data) < off+n {
			return nil, errors.New("truncated session entry")
		}
		v := string(data[off : off+n])
		off += n
		if v == "" {
			return nil, nil
		}
		return &v, nil
	}

	var err error
	if s.IpAddress, err = readStr(); err != nil {
		return nil, err
	}
	if s.UserAgent, err = readStr(); err != nil {
		return nil, err
	}
	return s, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func (s *boltSessionStore) Create(ctx context.Context, accountID uuid.UUID, ipAddress, userAgent *string) (*models.Session, error) {
	defer logutil.NewTimingLogger(ctx, s.log, time.Now(), "executed bolt tx", "method", "create session")()

	if err := s.checkCtx(ctx, "creation"); err != nil {
		return nil, err
	}

	sesh, err := s.createSession(ctx, accountID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	// Stored at second precision; keep the returned copy consistent with Get.
	sesh.ExpiresAt = sesh.ExpiresAt.Truncate(time.Second)
	sesh.CreatedAt = sesh.CreatedAt.Truncate(time.Second)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketSessions)).Put([]byte(sesh.ID), boltEncode(sesh))
	})
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to create session", models.NewDatabaseError(err))
	}
	return sesh, nil
}

func (s *boltSessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := s.checkCtx(ctx, "get"); err != nil {
		return nil, err
	}

	var sesh *models.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucketSessions)).Get([]byte(sessionID))
		if v == nil {
			return nil
		}
		var err error
		sesh, err = boltDecode([]byte(sessionID), v)
		return err
	})
	if err != nil {
		return nil, logutil.LogAndWrapErr(ctx, s.log, "failed to get session",
			models.NewDatabaseError(err), "session", tokenHint(sessionID))
	}
	if sesh == nil || sesh.Expired(s.now()) {
		return nil, newSessionExpiredError(sessionID)
	}
	return sesh, nil
}

func (s *boltSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketSessions)).Delete([]byte(sessionID))
	})
	if err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, "failed to delete session",
			models.NewDatabaseError(err), "session", tokenHint(sessionID))
	}
	return nil
}

// deleteWhere removes every entry for which match returns true, including
// entries that no longer decode.
func (s *boltSessionStore) deleteWhere(match func(*models.Session) bool) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(boltBucketSessions))
		var doomed [][]byte
		err := bkt.ForEach(func(k, v []byte) error {
			sesh, err := boltDecode(k, v)
			if err != nil || match(sesh) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		var errs []error
		for _, k := range doomed {
			if err := bkt.Delete(k); err != nil {
				errs = append(errs, err)
			}
		}
		removed = len(doomed)
		return errors.Join(errs...)
	})
	return removed, err
}

func (s *boltSessionStore) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	_, err := s.deleteWhere(func(sesh *models.Session) bool {
		return sesh.AccountID == accountID
	})
	if err != nil {
		return logutil.LogAndWrapErr(ctx, s.log, "failed to delete account sessions",
			models.NewDatabaseError(err), "account_id", accountID)
	}
	return nil
}

func (s *boltSessionStore) CleanupExpired(ctx context.Context) error {
	if err := s.checkCtx(ctx, "cleanup"); err != nil {
		return err
	}

	now := s.now()
	n, err := s.deleteWhere(func(sesh *models.Session) bool {
		return sesh.Expired(now)
	})
	if err != nil {
		return models.NewDatabaseError(err)
	}
	if n > 0 {
		s.log.DebugContext(ctx, "removed expired sessions", "count", n, "backend", "bolt")
	}
	return nil
}

// Close stops the cleanup worker and closes the bolt file.
func (s *boltSessionStore) Close() error {
	s.stopCleanupWorker()
	return s.db.Close()
}
