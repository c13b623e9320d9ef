package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTokenDuration = 15 * time.Minute

var (
	ErrTokenRevoked = errors.New("token has been revoked")
	ErrInvalidToken = errors.New("invalid token or claims")
)

type baseTokenStore struct {
	log           *slog.Logger
	jwtSecret     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

func newBase(logger *slog.Logger, signingSecret string, tokenDuration time.Duration) *baseTokenStore {
	if tokenDuration <= 0 {
		tokenDuration = DefaultTokenDuration
	}
	return &baseTokenStore{
		log:           logger,
		jwtSecret:     []byte(signingSecret),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// TokenPayload is the claim set of an API access token. The account ID
// travels as the registered "sub" claim; AccountID is filled in by ParseToken.
type TokenPayload struct {
	AccountID uuid.UUID `json:"-"`
	Email     string    `json:"email"`
	jwt.RegisteredClaims
}

// tokenStateChecker defines the methods a base refresher needs from its parent store.
type tokenStateChecker interface {
	ParseToken(ctx context.Context, tokenStr string) (*TokenPayload, error)
	IsRevoked(ctx context.Context, tokenPayload *TokenPayload) (bool, error)
	RevokeToken(ctx context.Context, token *TokenPayload) error
}

func (t *baseTokenStore) sign(sub uuid.UUID, email string) (string, error) {
	now := t.now()
	payload := TokenPayload{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenDuration)),
			Subject:   sub.String(),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	return token.SignedString(t.jwtSecret)
}

// IssueToken generates a signed JWT for the given account.
func (t *baseTokenStore) IssueToken(account *models.Account) (string, error) {
	return t.sign(account.ID, account.Email)
}

// TokenDuration is the lifetime of issued tokens.
func (t *baseTokenStore) TokenDuration() time.Duration {
	return t.tokenDuration
}

// ParseToken validates signature, algorithm and expiry. It does not consult
// the revocation list.
func (t *baseTokenStore) ParseToken(ctx context.Context, tokenStr string) (*TokenPayload, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenPayload{}, func(token *jwt.Token) (interface{}, error) {
		return t.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	payload, ok := token.Claims.(*TokenPayload)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	payload.AccountID, err = uuid.Parse(payload.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %w", ErrInvalidToken, err)
	}
	return payload, nil
}

// refreshToken provides the generic algorithm for refreshing a token.
// It uses the provided checker to handle stateful operations (parsing, revoking).
func (t *baseTokenStore) refreshToken(ctx context.Context, checker tokenStateChecker, oldTokenStr string) (string, error) {
	payload, err := checker.ParseToken(ctx, oldTokenStr)
	if err != nil {
		return "", fmt.Errorf("could not parse token for refresh: %w", err)
	}

	revoked, err := checker.IsRevoked(ctx, payload)
	if err != nil {
		return "", logutil.LogAndWrapErr(ctx, t.log, "failed to check token revocation", err)
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	// Revoke the token prior to sending the new one
	if err := checker.RevokeToken(ctx, payload); err != nil {
		return "", logutil.LogAndWrapErr(ctx, t.log, "could not revoke old token", err)
	}

	return t.sign(payload.AccountID, payload.Email)
}

type TokenStore interface {
	// Generate a new JWT for an account
	IssueToken(account *models.Account) (string, error)

	// ParseToken validates and parses a JWT string, returning the tokenPayload if valid. Does not check if it is revoked.
	ParseToken(ctx context.Context, tokenStr string) (*TokenPayload, error)

	// Revoke a token before expiry. Revoking twice is not an error.
	RevokeToken(ctx context.Context, token *TokenPayload) error

	// Check if a token payload has been revoked
	IsRevoked(ctx context.Context, tokenPayload *TokenPayload) (bool, error)

	// Refresh an unexpired, unrevoked token, revoking the old one
	RefreshTokenStr(ctx context.Context, oldTokenStr string) (string, error)

	// TokenDuration is the lifetime of newly issued tokens
	TokenDuration() time.Duration
}
