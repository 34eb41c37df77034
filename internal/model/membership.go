package model

import (
	"time"

	"gorm.io/gorm"

	"eventhub/pkg/jwtutil"
)

// Membership statuses
const (
	MembershipActive   = "active"
	MembershipInactive = "inactive"
	MembershipInvited  = "invited"
)

// Membership binds one user to one tenant. Authorization for a tenant-scoped
// request always goes through the membership of that tenant.
type Membership struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_membership_user_tenant"`
	TenantID  uint           `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_membership_user_tenant"`
	Status    string         `json:"status" gorm:"type:varchar(20);not null;default:'invited'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User        User             `json:"-" gorm:"foreignKey:UserID"`
	Tenant      Tenant           `json:"-" gorm:"foreignKey:TenantID"`
	Assignments []RoleAssignment `json:"assignments,omitempty" gorm:"foreignKey:MembershipID"`
}

// IsActive reports whether the membership currently grants access
func (m *Membership) IsActive() bool {
	return m.Status == MembershipActive
}

// Scopes returns the sorted role scopes currently assigned to the membership.
// Roles bound to a different tenant are ignored.
func (m *Membership) Scopes() []string {
	scopes := make([]string, 0, len(m.Assignments))
	for _, a := range m.Assignments {
		if a.Role.TenantID != nil && *a.Role.TenantID != m.TenantID {
			continue
		}
		scopes = append(scopes, a.Role.Scope)
	}
	return jwtutil.NormalizeScopes(scopes)
}

// ValidMembershipStatus reports whether s is a known membership status
func ValidMembershipStatus(s string) bool {
	switch s {
	case MembershipActive, MembershipInactive, MembershipInvited:
		return true
	}
	return false
}
