// Package session persists the last issued token together with the user it
// was issued for. Both keys are written and removed in one transaction, so a
// reader sees either a full session or none.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carbonx-dev/carbonx/internal/client/repositories/metadata"
	"github.com/carbonx-dev/carbonx/internal/dbx"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Metadata keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrInconsistent is returned by Save when the token was not issued for the
// given user.
var ErrInconsistent = errors.New("token does not belong to user")

// Session is what the CLI knows about the signed-in user.
type Session struct {
	Token string
	User  identity.User
	// ExpiresAt is read from the token without verifying it; zero if the
	// token carries no exp claim.
	ExpiresAt time.Time
}

// Cache stores a Session in the metadata table.
type Cache struct {
	db     *sql.DB
	repo   metadata.Factory
	logger logging.Logger
}

func NewCache(db *sql.DB, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Cache{db: db, repo: metadata.SQLite, logger: logger.With("module", "session")}
}

// Save writes token and user atomically, replacing any previous session.
func (c *Cache) Save(ctx context.Context, token string, user identity.User) error {
	claims, err := decode(token)
	if err != nil {
		return err
	}
	if !matches(claims, user) {
		return ErrInconsistent
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.repo(tx)
		if err := repo.Set(ctx, KeyToken, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, KeyUser, userJSON)
	})
}

// Load returns the cached session, or nil when there is no usable one: a key
// is missing, the user record does not parse, the token does not decode, or
// the token's uid/role disagree with the user record. Only storage failures
// are reported as errors.
func (c *Cache) Load(ctx context.Context) (*Session, error) {
	repo := c.repo(c.db)

	token, err := repo.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	rawUser, err := repo.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if len(token) == 0 || len(rawUser) == 0 {
		return nil, nil
	}

	var user identity.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		c.logger.Warn(ctx, "cached user is not valid json", "error", err)
		return nil, nil
	}

	claims, err := decode(string(token))
	if err != nil {
		c.logger.Warn(ctx, "cached token does not decode", "error", err)
		return nil, nil
	}
	if !matches(claims, user) {
		c.logger.Warn(ctx, "cached token and user disagree", "user_id", user.ID)
		return nil, nil
	}

	s := &Session{Token: string(token), User: user}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Clear removes token and user atomically. Clearing an empty cache is a no-op.
func (c *Cache) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return c.repo(tx).Delete(ctx, KeyToken, KeyUser)
	})
}

// decode reads the claims without checking the signature; the client does
// not hold the signing key. The server verifies every request.
func decode(token string) (*identity.Claims, error) {
	claims := &identity.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claims, nil
}

func matches(claims *identity.Claims, user identity.User) bool {
	return claims.UserID != "" && claims.UserID == user.ID && claims.Role == user.Role
}
