package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a session stays valid after issuance.
const DefaultSessionTTL = 24 * time.Hour

// Session represents the data stored for a single signed-in browser.
type Session struct {
	ID        string    // Opaque random token, also the cookie value
	AccountID uuid.UUID // Account bound to this session
	ExpiresAt time.Time // When the session becomes invalid
	CreatedAt time.Time // When the session was issued
	IpAddress *string   // Optional ip address
	UserAgent *string   // Optional UserAgent
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
