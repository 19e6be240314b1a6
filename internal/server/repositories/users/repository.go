// Package users is the credential store: persistence of user records with
// case-insensitive unique email addresses.
package users

import (
	"context"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/server/models"
)

// Repository is the storage contract behind signup and login.
//
// FindByEmail returns common.ErrorNotFound when no user matches.
// Create returns common.ErrDuplicateEmail when the email is already taken;
// on success it fills in ID and CreatedAt.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
