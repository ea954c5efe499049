package auth

import (
	"context"

	"github.com/spec-kit/community-portal/internal/domain"
)

// Identity is the caller resolved for a single request.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     domain.Role
	Source   domain.AuthSource
}

// HasRole reports whether the identity holds one of roles.
func (i Identity) HasRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity attaches the resolved identity to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &id)
}

// IdentityFromContext extracts the identity. ok is false for anonymous callers.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil {
		return Identity{}, false
	}
	return *v, true
}
