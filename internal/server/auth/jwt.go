// Package auth issues and verifies identity tokens and carries the verified
// principal through request contexts.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenValidity applies when the configured validity is not positive.
const DefaultTokenValidity = time.Hour

// Reason classifies why a token was rejected.
type Reason string

const (
	ReasonMalformed    Reason = "malformed"
	ReasonBadSignature Reason = "bad_signature"
	ReasonExpired      Reason = "expired"
)

// InvalidTokenError is returned by Verify. It matches common.ErrInvalidToken,
// and expired tokens additionally match common.ErrTokenExpired.
type InvalidTokenError struct {
	Reason Reason
	Err    error
}

func (e *InvalidTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid token: %s: %v", e.Reason, e.Err)
	}
	return "invalid token: " + string(e.Reason)
}

func (e *InvalidTokenError) Is(target error) bool {
	switch target {
	case common.ErrInvalidToken:
		return true
	case common.ErrTokenExpired:
		return e.Reason == ReasonExpired
	}
	return false
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

// ReasonOf extracts the rejection reason from err, or "" if err is not an
// InvalidTokenError.
func ReasonOf(err error) Reason {
	var ite *InvalidTokenError
	if errors.As(err, &ite) {
		return ite.Reason
	}
	return ""
}

// Option customises a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// TokenService signs and verifies HS256 identity tokens. It is immutable
// after construction and safe for concurrent use.
type TokenService struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenService constructs a TokenService. The secret must not be empty.
func NewTokenService(secret []byte, validity time.Duration, opts ...Option) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	s := &TokenService{
		secret:   append([]byte(nil), secret...),
		validity: validity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validity reports the lifetime of issued tokens.
func (s *TokenService) Validity() time.Duration { return s.validity }

// Issue signs a token for subjectID carrying role.
func (s *TokenService) Issue(subjectID string, role identity.Role) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id must not be empty")
	}
	if !role.Valid() {
		return "", fmt.Errorf("cannot issue token for role %q", role)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
			ID:        uuid.NewString(),
		},
		UserID: subjectID,
		Role:   role,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verify checks structure, then signature, then expiry, in that order, and
// returns the principal the token was issued for.
func (s *TokenService) Verify(tokenString string) (*identity.Principal, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, &InvalidTokenError{Reason: ReasonMalformed}
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, &InvalidTokenError{Reason: ReasonMalformed, Err: err}
	}
	// hmac.Equal under the hood, so the comparison is constant time.
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.secret); err != nil {
		return nil, &InvalidTokenError{Reason: ReasonBadSignature, Err: err}
	}

	claims := &identity.Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, &InvalidTokenError{Reason: ReasonMalformed}
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, &InvalidTokenError{Reason: ReasonMalformed, Err: errors.New("missing subject or role")}
	}

	return &identity.Principal{SubjectID: claims.UserID, Role: claims.Role}, nil
}

func classify(err error) *InvalidTokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &InvalidTokenError{Reason: ReasonExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &InvalidTokenError{Reason: ReasonBadSignature, Err: err}
	default:
		return &InvalidTokenError{Reason: ReasonMalformed, Err: err}
	}
}
