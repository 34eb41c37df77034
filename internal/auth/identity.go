package auth

import (
	"context"
	"slices"

	"eventhub/internal/model"
)

// Identity is the authenticated caller of a request
type Identity struct {
	User       *model.User
	Membership *model.Membership
	Scopes     []string
	SuperAdmin bool
	TenantID   *uint
}

// UserID returns the caller's user id
func (i *Identity) UserID() uint {
	if i == nil || i.User == nil {
		return 0
	}
	return i.User.ID
}

// HasAnyScope reports whether the identity holds at least one of scopes
func (i *Identity) HasAnyScope(scopes ...string) bool {
	if i == nil {
		return false
	}
	for _, s := range scopes {
		if slices.Contains(i.Scopes, s) {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the identity
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity carried by ctx
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
