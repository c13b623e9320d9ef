package sessionstore

import (
	"context"
	"sync"

	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/google/uuid"
)

type inMemorySessionStore struct {
	*baseSessionStore
	sessions map[string]*models.Session // sessionID -> session
	mutex    sync.Mutex
}

func (s *inMemorySessionStore) Create(ctx context.Context, accountID uuid.UUID, ipAddress, userAgent *string) (*models.Session, error) {
	if err := s.checkCtx(ctx, "creation"); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, accountID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.sessions[session.ID] = session
	s.mutex.Unlock()

	s.log.DebugContext(ctx, "created session", "session", tokenHint(session.ID), "account_id", accountID.String())
	cp := *session
	return &cp, nil
}

func (s *inMemorySessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := s.checkCtx(ctx, "get"); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.Expired(s.now()) {
		return nil, newSessionExpiredError(sessionID)
	}

	cp := *sess
	return &cp, nil
}

func (s *inMemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	s.mutex.Lock()
	delete(s.sessions, sessionID)
	s.mutex.Unlock()

	s.log.DebugContext(ctx, "deleted session", "session", tokenHint(sessionID))
	return nil
}

func (s *inMemorySessionStore) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.checkCtx(ctx, "delete"); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for k, v := range s.sessions {
		if v.AccountID == accountID {
			delete(s.sessions, k)
		}
	}
	s.log.DebugContext(ctx, "deleted sessions for account", "account_id", accountID.String())
	return nil
}

func (s *inMemorySessionStore) CleanupExpired(ctx context.Context) error {
	if err := s.checkCtx(ctx, "cleanup"); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	removed := 0
	for k, v := range s.sessions {
		if v.Expired(now) {
			delete(s.sessions, k)
			removed++
		}
	}
	if removed > 0 {
		s.log.DebugContext(ctx, "removed expired sessions", "count", removed)
	}
	return nil
}

func (s *inMemorySessionStore) Close() error {
	s.stopCleanupWorker()
	return nil
}
