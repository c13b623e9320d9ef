// Package passwd derives and verifies password secrets. Two schemes are
// supported, bcrypt and argon2id, and a Chain verifies either while hashing
// with the configured one.
package passwd

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Constants for cost and max password length (bcrypt truncates after 72 bytes)
const (
	DefaultCost    = 12 // Usually 10
	MaxPasswordLen = 72 // bcrypt input limit
)

var (
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes and will be truncated by bcrypt")
	ErrUnknownScheme   = errors.New("unrecognised password hash format")
)

// Hasher turns a plaintext password into a salted one-way secret and checks
// candidates against it.
type Hasher interface {
	// Hash produces a new salted secret for password.
	Hash(password string) (string, error)

	// Verify returns (true, nil) on match, (false, nil) on mismatch and an
	// error only when the stored secret is unusable.
	Verify(password, hash string) (bool, error)

	// NeedsRehash reports whether hash was produced with weaker settings than
	// this hasher would use today.
	NeedsRehash(hash string) bool
}

// Bcrypt hashes with golang.org/x/crypto/bcrypt at a tunable cost.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a Bcrypt hasher. A zero cost selects DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, bcrypt.InvalidCostError(cost)
	}
	return &Bcrypt{Cost: cost}, nil
}

func (b *Bcrypt) Hash(password string) (string, error) {
	// Reject rather than let bcrypt silently truncate
	if len(password) > MaxPasswordLen {
		return "", ErrPasswordTooLong
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (b *Bcrypt) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (b *Bcrypt) NeedsRehash(hash string) bool {
	if !IsBcrypt(hash) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < b.Cost
}

// IsBcrypt reports whether hash looks like a modular-crypt bcrypt string.
func IsBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

// IsHashed reports whether s is a secret produced by one of the known schemes.
// Stores use it to refuse plaintext on write.
func IsHashed(s string) bool {
	return IsBcrypt(s) || IsArgon2id(s)
}

// Chain hashes with Primary and verifies secrets of any known scheme, so
// accounts created before a scheme change can still sign in.
type Chain struct {
	Primary Hasher

	bcrypt *Bcrypt
	argon  *Argon2id
}

// NewChain returns a Chain hashing with primary.
func NewChain(primary Hasher) *Chain {
	return &Chain{
		Primary: primary,
		bcrypt:  &Bcrypt{Cost: DefaultCost},
		argon:   NewArgon2id(),
	}
}

func (c *Chain) Hash(password string) (string, error) {
	return c.Primary.Hash(password)
}

func (c *Chain) Verify(password, hash string) (bool, error) {
	switch {
	case IsBcrypt(hash):
		return c.bcrypt.Verify(password, hash)
	case IsArgon2id(hash):
		return c.argon.Verify(password, hash)
	default:
		return false, ErrUnknownScheme
	}
}

func (c *Chain) NeedsRehash(hash string) bool {
	return c.Primary.NeedsRehash(hash)
}

// New builds the Chain for a configured scheme name ("bcrypt" or "argon2id").
func New(scheme string, bcryptCost int) (*Chain, error) {
	switch scheme {
	case "", "bcrypt":
		b, err := NewBcrypt(bcryptCost)
		if err != nil {
			return nil, err
		}
		return NewChain(b), nil
	case "argon2id":
		return NewChain(NewArgon2id()), nil
	default:
		return nil, ErrUnknownScheme
	}
}
