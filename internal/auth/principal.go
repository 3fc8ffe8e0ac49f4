package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"docattach/internal/models"
)

// Principal is the caller a request was authenticated as.
type Principal struct {
	Username string
	Role     models.Role
	// Token marks callers that presented the shared admin API token.
	Token bool
	// Anonymous marks callers on a server that does not require auth.
	Anonymous bool
}

// CanWriteDocument reports whether the principal may modify a document owned by owner.
func (p Principal) CanWriteDocument(owner string) bool {
	if p.Token || p.Anonymous {
		return true
	}
	if p.Role.CanWriteAll() {
		return true
	}
	return p.Username != "" && p.Username == strings.ToLower(strings.TrimSpace(owner))
}

// IsAdmin reports whether the principal may manage doctypes.
func (p Principal) IsAdmin() bool {
	return p.Token || p.Anonymous || p.Role == models.RoleAdmin
}

// TokenMatches compares a presented token against the configured one in constant time.
func TokenMatches(expected, candidate string) bool {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(candidate))) == 1
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored on ctx.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
