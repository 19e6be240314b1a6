// Package identity holds the role model and token claim layout shared by the
// server (which signs and verifies tokens) and the client (which caches them).
package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role determines which dashboards and API routes a user may reach.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole converts s into a Role. An empty string yields RoleUser, which is
// the default offered at signup.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleUser, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Claims is the payload of an identity token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Role   Role   `json:"role"`
}

// Principal is the verified subject of a request.
type Principal struct {
	SubjectID string
	Role      Role
}

// User is the public summary of an account, as returned by the API and
// cached by the client. It never carries credential material.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}
