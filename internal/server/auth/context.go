package auth

import (
	"context"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
)

type principalContextKey struct{}

// ContextWithPrincipal returns a copy of ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by the auth gate.
func PrincipalFromContext(ctx context.Context) (*identity.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*identity.Principal)
	return p, ok && p != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	prefix := len(common.BearerPrefix)
	if len(header) <= prefix || !strings.EqualFold(header[:prefix], common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[prefix:])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
