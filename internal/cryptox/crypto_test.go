package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; the format is identical.
var testParams = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func newTestHasher(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(testParams)
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("123456")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.NotContains(t, hash, "123456")

	ok, err := h.Verify("123456", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("1234567", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_UsesStoredParameters(t *testing.T) {
	old := newTestHasher(t)
	hash, err := old.Hash("pw-123456")
	require.NoError(t, err)

	stronger, err := NewArgon2(Params{Time: 2, Memory: 2048, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)

	ok, err := stronger.Verify("pw-123456", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_InvalidHash(t *testing.T) {
	h := newTestHasher(t)

	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		_, err := h.Verify("pw", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestNewArgon2_RejectsZeroCost(t *testing.T) {
	_, err := NewArgon2(Params{})
	require.Error(t, err)

	_, err = NewArgon2(Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 4, SaltLen: 8})
	require.Error(t, err)
}
