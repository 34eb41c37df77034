// Package authz decides whether an authenticated identity may call a route.
package authz

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"eventhub/internal/auth"
	"eventhub/internal/model"
	"eventhub/pkg/logger"
	"eventhub/prometheus"
)

// Decision is the outcome of a single rule
type Decision int

const (
	Abstain Decision = iota
	Allow
)

// ParticipantScopes are the scopes that an active membership alone may use
var ParticipantScopes = []string{model.ScopeParticipant, model.ScopeTeamCaptain}

// Request is what a rule sees about the call being authorized
type Request struct {
	Identity *auth.Identity
	TenantID *uint

	// Scopes the route accepts
	Scopes []string

	// OwnerParam names the path parameter holding the resource id, if the
	// route allows an ownership fallback
	OwnerParam string
	ResourceID uint
}

// Rule grants access or abstains. Rules never deny; denial is what remains
// when every rule abstained.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, req *Request) Decision
}

// Chain evaluates rules in order and stops at the first Allow
type Chain struct {
	rules []Rule
}

// NewChain creates a chain from rules
func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: rules}
}

// Decide reports whether the request is allowed and the name of the rule
// that decided it
func (c *Chain) Decide(ctx context.Context, req *Request) (bool, string) {
	if req.Identity == nil {
		prometheus.RecordAuthorizationDecision("unauthenticated", false)
		return false, "unauthenticated"
	}
	for _, r := range c.rules {
		if r.Evaluate(ctx, req) == Allow {
			prometheus.RecordAuthorizationDecision(r.Name(), true)
			return true, r.Name()
		}
	}
	prometheus.RecordAuthorizationDecision("default", false)
	return false, "default"
}

// SuperAdmin allows super-admins everything
type SuperAdmin struct{}

func (SuperAdmin) Name() string { return "super_admin" }

func (SuperAdmin) Evaluate(_ context.Context, req *Request) Decision {
	if req.Identity.SuperAdmin {
		return Allow
	}
	return Abstain
}

// RoleScope allows identities holding one of the route's scopes
type RoleScope struct{}

func (RoleScope) Name() string { return "role_scope" }

func (RoleScope) Evaluate(_ context.Context, req *Request) Decision {
	if req.Identity.HasAnyScope(req.Scopes...) {
		return Allow
	}
	return Abstain
}

// OwnerChecker reports whether a user owns a resource
type OwnerChecker interface {
	IsOwner(ctx context.Context, resourceID, userID uint) (bool, error)
}

// ResourceOwner allows the owner of the addressed resource. Checkers are
// keyed by the route's owner parameter.
type ResourceOwner struct {
	Checkers map[string]OwnerChecker
}

func (ResourceOwner) Name() string { return "resource_owner" }

func (r ResourceOwner) Evaluate(ctx context.Context, req *Request) Decision {
	if req.OwnerParam == "" || req.ResourceID == 0 {
		return Abstain
	}
	checker, ok := r.Checkers[req.OwnerParam]
	if !ok {
		return Abstain
	}

	owns, err := checker.IsOwner(ctx, req.ResourceID, req.Identity.UserID())
	if err != nil {
		// A failed lookup never grants access; later rules still apply.
		logger.FromContext(ctx).Error("Ownership check failed",
			zap.String("param", req.OwnerParam),
			zap.Uint("resource_id", req.ResourceID),
			zap.Uint("user_id", req.Identity.UserID()),
			zap.Error(err))
		prometheus.RecordOwnershipCheckError()
		return Abstain
	}
	if owns {
		return Allow
	}
	return Abstain
}

// ActiveMembership allows any active member of the request's tenant on
// routes open to participants
type ActiveMembership struct{}

func (ActiveMembership) Name() string { return "active_membership" }

func (ActiveMembership) Evaluate(_ context.Context, req *Request) Decision {
	m := req.Identity.Membership
	if m == nil || !m.IsActive() || req.TenantID == nil || m.TenantID != *req.TenantID {
		return Abstain
	}
	for _, s := range ParticipantScopes {
		if slices.Contains(req.Scopes, s) {
			return Allow
		}
	}
	return Abstain
}

// DefaultChain returns the rule order used by the service
func DefaultChain(owners map[string]OwnerChecker) *Chain {
	return NewChain(SuperAdmin{}, RoleScope{}, ResourceOwner{Checkers: owners}, ActiveMembership{})
}
