package passwd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastArgon() *Argon2id {
	return &Argon2id{Time: 1, Memory: 8 * 1024, Threads: 1}
}

func TestBcrypt_Hash(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := b.Hash("mysecretpassword")
	require.NoError(t, err)
	assert.NotEqual(t, "mysecretpassword", hash)
	assert.True(t, IsBcrypt(hash))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("mysecretpassword")))

	// Same password twice yields different secrets because of the salt
	again, err := b.Hash("mysecretpassword")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)

	_, err = b.Hash(strings.Repeat("a", MaxPasswordLen+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = b.Hash(strings.Repeat("a", MaxPasswordLen))
	assert.NoError(t, err)
}

func TestNewBcrypt_Cost(t *testing.T) {
	b, err := NewBcrypt(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, b.Cost)

	_, err = NewBcrypt(2)
	assert.Error(t, err)

	_, err = NewBcrypt(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestBcrypt_Verify(t *testing.T) {
	b := &Bcrypt{Cost: bcrypt.MinCost}
	hash, err := b.Hash("testpassword123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  bool
	}{
		{"correct", "testpassword123", hash, true, false},
		{"wrong", "wrongpassword", hash, false, false},
		{"empty candidate", "", hash, false, false},
		{"malformed hash", "testpassword123", "thisisnotavalidhash", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := b.Verify(tt.password, tt.hash)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestBcrypt_NeedsRehash(t *testing.T) {
	weak := &Bcrypt{Cost: bcrypt.MinCost}
	strong := &Bcrypt{Cost: bcrypt.MinCost + 1}

	hash, err := weak.Hash("pw")
	require.NoError(t, err)

	assert.False(t, weak.NeedsRehash(hash))
	assert.True(t, strong.NeedsRehash(hash))
	assert.True(t, weak.NeedsRehash("$argon2id$v=19$m=1,t=1,p=1$AA$AA"))
}

func TestArgon2id(t *testing.T) {
	a := fastArgon()

	hash, err := a.Hash("hunter22")
	require.NoError(t, err)
	assert.True(t, IsArgon2id(hash))
	assert.NotContains(t, hash, "hunter22")

	ok, err := a.Verify("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Verify("hunter23", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.Verify("hunter22", "$argon2id$bogus")
	assert.ErrorIs(t, err, ErrInvalidArgon2Hash)

	assert.False(t, a.NeedsRehash(hash))
	assert.True(t, (&Argon2id{Time: 2, Memory: 8 * 1024, Threads: 1}).NeedsRehash(hash))
}

func TestChain(t *testing.T) {
	b := &Bcrypt{Cost: bcrypt.MinCost}
	bcryptHash, err := b.Hash("loadboard")
	require.NoError(t, err)
	argonHash, err := fastArgon().Hash("loadboard")
	require.NoError(t, err)

	c := NewChain(fastArgon())
	c.bcrypt = b

	for _, h := range []string{bcryptHash, argonHash} {
		ok, err := c.Verify("loadboard", h)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err = c.Verify("loadboard", "plaintext")
	assert.ErrorIs(t, err, ErrUnknownScheme)

	assert.True(t, c.NeedsRehash(bcryptHash))
	assert.False(t, c.NeedsRehash(argonHash))

	fresh, err := c.Hash("loadboard")
	require.NoError(t, err)
	assert.True(t, IsArgon2id(fresh))
}

func TestNew(t *testing.T) {
	c, err := New("bcrypt", bcrypt.MinCost)
	require.NoError(t, err)
	assert.IsType(t, &Bcrypt{}, c.Primary)

	c, err = New("argon2id", 0)
	require.NoError(t, err)
	assert.IsType(t, &Argon2id{}, c.Primary)

	_, err = New("md5", 0)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestIsHashed(t *testing.T) {
	assert.True(t, IsHashed("$2a$10$abcdefghijklmnopqrstuv"))
	assert.True(t, IsHashed("$argon2id$v=19$m=1,t=1,p=1$AA$AA"))
	assert.False(t, IsHashed("password"))
	assert.False(t, IsHashed(""))
}
