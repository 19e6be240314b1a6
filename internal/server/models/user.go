package models

import (
	"time"

	"github.com/carbonx-dev/carbonx/internal/identity"
)

// User is a stored account. PasswordHash is an Argon2id PHC string and never
// leaves the server.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         identity.Role
	CreatedAt    time.Time
}

// Summary is the public view of the user returned by the API.
func (u *User) Summary() identity.User {
	return identity.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
