package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, secret string, opts ...Option) *TokenService {
	t.Helper()
	s, err := NewTokenService([]byte(secret), time.Hour, opts...)
	require.NoError(t, err)
	return s
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newService(t, "super-secret")

	for _, role := range []identity.Role{identity.RoleUser, identity.RoleAdmin} {
		tok, err := s.Issue("user-123", role)
		require.NoError(t, err)

		p, err := s.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, &identity.Principal{SubjectID: "user-123", Role: role}, p)
	}
}

func TestIssue_RejectsBadInput(t *testing.T) {
	t.Parallel()

	s := newService(t, "k")

	_, err := s.Issue("", identity.RoleUser)
	require.Error(t, err)

	_, err = s.Issue("u1", identity.Role("root"))
	require.Error(t, err)
}

func TestNewTokenService(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(nil, time.Hour)
	require.Error(t, err)

	s, err := NewTokenService([]byte("k"), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenValidity, s.Validity())
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	s := newService(t, "secret", WithClock(func() time.Time { return now }))

	tok, err := s.Issue("u1", identity.RoleAdmin)
	require.NoError(t, err)

	now = issuedAt.Add(59 * time.Minute)
	_, err = s.Verify(tok)
	require.NoError(t, err)

	now = issuedAt.Add(time.Hour)
	_, err = s.Verify(tok)
	require.Error(t, err)
	assert.Equal(t, ReasonExpired, ReasonOf(err))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newService(t, "right-secret").Issue("u2", identity.RoleUser)
	require.NoError(t, err)

	_, err = newService(t, "wrong-secret").Verify(tok)
	assert.Equal(t, ReasonBadSignature, ReasonOf(err))
	assert.NotErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret")
	tok, err := s.Issue("u3", identity.RoleUser)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["role"] = "admin"
	forged, err := json.Marshal(payload)
	require.NoError(t, err)

	parts[1] = base64.RawURLEncoding.EncodeToString(forged)
	_, err = s.Verify(strings.Join(parts, "."))
	assert.Equal(t, ReasonBadSignature, ReasonOf(err))
}

func TestVerify_TamperedTag(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret")
	tok, err := s.Issue("u4", identity.RoleUser)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[5] == 'A' {
		sig[5] = 'B'
	} else {
		sig[5] = 'A'
	}
	parts[2] = string(sig)

	_, err = s.Verify(strings.Join(parts, "."))
	assert.Equal(t, ReasonBadSignature, ReasonOf(err))
}

func TestVerify_NoneAlgorithm(t *testing.T) {
	t.Parallel()

	s := newService(t, "secret")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u5",
		Role:             identity.RoleAdmin,
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.Verify(tok)
	assert.Equal(t, ReasonBadSignature, ReasonOf(err))
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	s := newService(t, "k")

	for _, tok := range []string{"", "not.a.jwt!", "only-one-part", "a.b", "..", "a.b.c.d"} {
		_, err := s.Verify(tok)
		require.Error(t, err, tok)
		assert.Equal(t, ReasonMalformed, ReasonOf(err), tok)
	}
}

func TestVerify_SignedButMissingRole(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	s := newService(t, string(secret))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u6",
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = s.Verify(tok)
	assert.Equal(t, ReasonMalformed, ReasonOf(err))
}

func TestVerify_SignedButNoExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	s := newService(t, string(secret))

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		UserID: "u7",
		Role:   identity.RoleUser,
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = s.Verify(tok)
	assert.Equal(t, ReasonMalformed, ReasonOf(err))
}

func TestReasonOf_ForeignError(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(common.ErrorInternal))
}
