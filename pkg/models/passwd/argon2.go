package passwd

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

var ErrInvalidArgon2Hash = errors.New("invalid argon2id hash")

// Argon2id hashes with argon2id and encodes the result as a PHC string:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2id struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// NewArgon2id returns a hasher with the OWASP baseline parameters.
func NewArgon2id() *Argon2id {
	return &Argon2id{Time: argon2Time, Memory: argon2Memory, Threads: argon2Threads}
}

func (a *Argon2id) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, a.Time, a.Memory, a.Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.Memory, a.Time, a.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

type argon2Params struct {
	memory, time uint32
	threads      uint8
	salt, key    []byte
}

func parseArgon2id(encoded string) (*argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidArgon2Hash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrInvalidArgon2Hash
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgon2Hash, err)
	}
	if threads == 0 || threads > 255 {
		return nil, ErrInvalidArgon2Hash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgon2Hash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return nil, ErrInvalidArgon2Hash
	}

	return &argon2Params{memory: memory, time: time, threads: uint8(threads), salt: salt, key: key}, nil
}

func (a *Argon2id) Verify(password, hash string) (bool, error) {
	p, err := parseArgon2id(hash)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

func (a *Argon2id) NeedsRehash(hash string) bool {
	p, err := parseArgon2id(hash)
	if err != nil {
		return true
	}
	return p.time < a.Time || p.memory < a.Memory || p.threads < a.Threads
}

// IsArgon2id reports whether hash carries the argon2id PHC prefix.
func IsArgon2id(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}
