package model

import "time"

// Role scopes
const (
	ScopeTenantAdmin = "tenant_admin"
	ScopeOrganizer   = "organizer"
	ScopeEvaluator   = "evaluator"
	ScopeParticipant = "participant"
	ScopeTeamCaptain = "team_captain"
	ScopeSuperAdmin  = "super_admin"
)

// Role is a named permission scope. TenantID is nil for global roles.
type Role struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Scope     string    `json:"scope" gorm:"type:varchar(50);not null;index"`
	TenantID  *uint     `json:"tenant_id,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleAssignment grants a role to a membership
type RoleAssignment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	MembershipID uint      `json:"membership_id" gorm:"not null;uniqueIndex:idx_assignment_membership_role"`
	RoleID       uint      `json:"role_id" gorm:"not null;uniqueIndex:idx_assignment_membership_role"`
	CreatedAt    time.Time `json:"created_at"`

	Role Role `json:"role" gorm:"foreignKey:RoleID"`
}

// ValidScope reports whether s is a known role scope
func ValidScope(s string) bool {
	switch s {
	case ScopeTenantAdmin, ScopeOrganizer, ScopeEvaluator, ScopeParticipant, ScopeTeamCaptain, ScopeSuperAdmin:
		return true
	}
	return false
}
