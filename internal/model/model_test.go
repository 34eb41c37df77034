package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMembershipScopes(t *testing.T) {
	own, other := uint(7), uint(9)
	m := &Membership{
		TenantID: 7,
		Assignments: []RoleAssignment{
			{Role: Role{Scope: ScopeParticipant}},
			{Role: Role{Scope: ScopeOrganizer, TenantID: &own}},
			{Role: Role{Scope: ScopeTenantAdmin, TenantID: &other}},
			{Role: Role{Scope: ScopeParticipant}},
		},
	}

	assert.Equal(t, []string{ScopeOrganizer, ScopeParticipant}, m.Scopes())
	assert.Empty(t, (&Membership{}).Scopes())
}

func TestStatuses(t *testing.T) {
	assert.True(t, (&Tenant{Status: TenantActive}).IsActive())
	assert.False(t, (&Tenant{Status: TenantTrial}).IsActive())
	assert.True(t, (&Membership{Status: MembershipActive}).IsActive())
	assert.False(t, (&Membership{Status: MembershipInvited}).IsActive())

	assert.True(t, ValidTenantStatus(TenantSuspended))
	assert.False(t, ValidTenantStatus("deleted"))
	assert.True(t, ValidMembershipStatus(MembershipInactive))
	assert.True(t, ValidScope(ScopeTeamCaptain))
	assert.False(t, ValidScope("owner"))
}

func TestModelLists(t *testing.T) {
	assert.Len(t, TenantOwnedModels(), 4)
	assert.Len(t, AllModels(), 9)
}
