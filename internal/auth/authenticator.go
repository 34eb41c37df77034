// Package auth turns a bearer token into the Identity of a request. Every
// request reloads the user and membership so that role and membership
// changes take effect before the token expires.
package auth

import (
	"context"
	"errors"
	"fmt"

	"eventhub/internal/model"
	"eventhub/internal/store"
	"eventhub/pkg/jwtutil"
	"eventhub/prometheus"
)

// TokenValidator verifies access tokens
type TokenValidator interface {
	ValidateAccess(token string) (*jwtutil.Claims, error)
}

// TokenIssuer issues token pairs
type TokenIssuer interface {
	Issue(sub jwtutil.Subject) (*jwtutil.TokenPair, error)
}

// UserFinder loads users
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// MembershipFinder loads memberships with their tenant and role assignments
type MembershipFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Membership, error)
}

// Authenticator validates access tokens against the current state of users
// and memberships
type Authenticator struct {
	tokens      TokenValidator
	users       UserFinder
	memberships MembershipFinder
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(tokens TokenValidator, users UserFinder, memberships MembershipFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, memberships: memberships}
}

// Authenticate validates rawToken for a request resolved to tenant, which
// is nil on routes without tenant resolution
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string, tenant *model.Tenant) (*Identity, error) {
	if rawToken == "" {
		return nil, ErrMissingToken
	}

	claims, err := a.tokens.ValidateAccess(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.TenantID != nil && tenant != nil && *claims.TenantID != tenant.ID {
		return nil, fmt.Errorf("%w: token tenant %d, request tenant %d", ErrTenantMismatch, *claims.TenantID, tenant.ID)
	}

	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownUser, claims.UserID)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	identity := &Identity{
		User:       user,
		SuperAdmin: user.IsSuperAdmin,
		TenantID:   claims.TenantID,
	}
	if tenant != nil {
		tenantID := tenant.ID
		identity.TenantID = &tenantID
	}

	if claims.MembershipID == nil {
		identity.Scopes = jwtutil.NormalizeScopes(claims.Scopes)
		return identity, nil
	}

	membership, err := a.memberships.FindByID(ctx, *claims.MembershipID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !identity.SuperAdmin {
			return nil, fmt.Errorf("%w: membership %d", ErrMembershipRevoked, *claims.MembershipID)
		}
		return identity, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if membership.UserID != user.ID {
		return nil, fmt.Errorf("%w: membership %d belongs to user %d", ErrMembershipMismatch, membership.ID, membership.UserID)
	}
	if tenant != nil && membership.TenantID != tenant.ID {
		return nil, fmt.Errorf("%w: membership %d belongs to tenant %d", ErrMembershipMismatch, membership.ID, membership.TenantID)
	}
	if !membership.IsActive() {
		return nil, fmt.Errorf("%w: status %s", ErrMembershipInactive, membership.Status)
	}

	identity.Membership = membership
	identity.Scopes = membership.Scopes()
	return identity, nil
}

// IssueFor issues a token pair for a user, optionally under a tenant and
// membership. Scopes are taken from the membership's current assignments.
func IssueFor(tokens TokenIssuer, user *model.User, tenant *model.Tenant, membership *model.Membership) (*jwtutil.TokenPair, error) {
	sub := jwtutil.Subject{
		UserID:     user.ID,
		SuperAdmin: user.IsSuperAdmin,
	}
	if tenant != nil {
		tenantID := tenant.ID
		sub.TenantID = &tenantID
	}
	if membership != nil {
		membershipID := membership.ID
		sub.MembershipID = &membershipID
		sub.Scopes = membership.Scopes()
	}

	pair, err := tokens.Issue(sub)
	if err != nil {
		return nil, err
	}

	prometheus.RecordTokenIssued(jwtutil.TypeAccess)
	prometheus.RecordTokenIssued(jwtutil.TypeRefresh)
	return pair, nil
}
