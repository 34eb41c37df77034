package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"eventhub/internal/auth"
	"eventhub/internal/model"
)

type fakeOwners struct {
	owned map[uint]uint // resource -> owner
	err   error
	calls int
}

func (f *fakeOwners) IsOwner(_ context.Context, resourceID, userID uint) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.owned[resourceID] == userID, nil
}

func member(userID, tenantID uint, status string, scopes ...string) *auth.Identity {
	t := tenantID
	return &auth.Identity{
		User:       &model.User{ID: userID},
		Membership: &model.Membership{ID: 88, UserID: userID, TenantID: tenantID, Status: status},
		Scopes:     scopes,
		TenantID:   &t,
	}
}

func tenant(id uint) *uint { return &id }

func TestChainSuperAdmin(t *testing.T) {
	chain := DefaultChain(nil)
	id := &auth.Identity{User: &model.User{ID: 1}, SuperAdmin: true}

	ok, rule := chain.Decide(context.Background(), &Request{Identity: id, Scopes: []string{model.ScopeSuperAdmin}})
	assert.True(t, ok)
	assert.Equal(t, "super_admin", rule)
}

func TestChainRoleScope(t *testing.T) {
	chain := DefaultChain(nil)
	id := member(42, 7, model.MembershipActive, model.ScopeOrganizer)

	ok, rule := chain.Decide(context.Background(), &Request{
		Identity: id,
		TenantID: tenant(7),
		Scopes:   []string{model.ScopeTenantAdmin, model.ScopeOrganizer},
	})
	assert.True(t, ok)
	assert.Equal(t, "role_scope", rule)
}

func TestChainDeniesWithoutMatchingScope(t *testing.T) {
	chain := DefaultChain(nil)
	id := member(42, 7, model.MembershipActive, model.ScopeParticipant)

	ok, rule := chain.Decide(context.Background(), &Request{
		Identity: id,
		TenantID: tenant(7),
		Scopes:   []string{model.ScopeEvaluator},
	})
	assert.False(t, ok)
	assert.Equal(t, "default", rule)
}

func TestChainResourceOwner(t *testing.T) {
	owners := &fakeOwners{owned: map[uint]uint{5: 42}}
	chain := DefaultChain(map[string]OwnerChecker{"team_id": owners})
	id := member(42, 7, model.MembershipActive, model.ScopeParticipant)

	req := &Request{
		Identity:   id,
		TenantID:   tenant(7),
		Scopes:     []string{model.ScopeTenantAdmin, model.ScopeOrganizer},
		OwnerParam: "team_id",
		ResourceID: 5,
	}
	ok, rule := chain.Decide(context.Background(), req)
	assert.True(t, ok)
	assert.Equal(t, "resource_owner", rule)

	req.ResourceID = 6
	ok, _ = chain.Decide(context.Background(), req)
	assert.False(t, ok)
}

func TestChainOwnershipErrorFallsThrough(t *testing.T) {
	owners := &fakeOwners{err: errors.New("db down")}
	chain := DefaultChain(map[string]OwnerChecker{"team_id": owners})
	id := member(42, 7, model.MembershipActive, model.ScopeParticipant)

	// Not a participant route: the error must not grant access
	ok, rule := chain.Decide(context.Background(), &Request{
		Identity:   id,
		TenantID:   tenant(7),
		Scopes:     []string{model.ScopeOrganizer},
		OwnerParam: "team_id",
		ResourceID: 5,
	})
	assert.False(t, ok)
	assert.Equal(t, "default", rule)
	assert.Equal(t, 1, owners.calls)

	// Participant route: the membership rule still decides
	ok, rule = chain.Decide(context.Background(), &Request{
		Identity:   id,
		TenantID:   tenant(7),
		Scopes:     []string{model.ScopeOrganizer, model.ScopeTeamCaptain},
		OwnerParam: "team_id",
		ResourceID: 5,
	})
	assert.True(t, ok)
	assert.Equal(t, "active_membership", rule)
}

func TestChainActiveMembership(t *testing.T) {
	chain := DefaultChain(nil)

	// Member without roles on a participant route
	ok, rule := chain.Decide(context.Background(), &Request{
		Identity: member(42, 7, model.MembershipActive),
		TenantID: tenant(7),
		Scopes:   []string{model.ScopeParticipant},
	})
	assert.True(t, ok)
	assert.Equal(t, "active_membership", rule)

	// Invited member
	ok, _ = chain.Decide(context.Background(), &Request{
		Identity: member(42, 7, model.MembershipInvited),
		TenantID: tenant(7),
		Scopes:   []string{model.ScopeParticipant},
	})
	assert.False(t, ok)

	// Membership of another tenant
	ok, _ = chain.Decide(context.Background(), &Request{
		Identity: member(42, 9, model.MembershipActive),
		TenantID: tenant(7),
		Scopes:   []string{model.ScopeParticipant},
	})
	assert.False(t, ok)

	// Not a participant route
	ok, _ = chain.Decide(context.Background(), &Request{
		Identity: member(42, 7, model.MembershipActive),
		TenantID: tenant(7),
		Scopes:   []string{model.ScopeEvaluator},
	})
	assert.False(t, ok)
}

func TestChainWithoutIdentity(t *testing.T) {
	ok, rule := DefaultChain(nil).Decide(context.Background(), &Request{Scopes: []string{model.ScopeParticipant}})
	assert.False(t, ok)
	assert.Equal(t, "unauthenticated", rule)
}

func TestResourceOwnerWithoutParamAbstains(t *testing.T) {
	owners := &fakeOwners{owned: map[uint]uint{5: 42}}
	r := ResourceOwner{Checkers: map[string]OwnerChecker{"team_id": owners}}

	d := r.Evaluate(context.Background(), &Request{Identity: member(42, 7, model.MembershipActive)})
	assert.Equal(t, Abstain, d)
	assert.Zero(t, owners.calls)

	d = r.Evaluate(context.Background(), &Request{Identity: member(42, 7, model.MembershipActive), OwnerParam: "event_id", ResourceID: 5})
	assert.Equal(t, Abstain, d)
}
