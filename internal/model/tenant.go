package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant statuses. Only TenantActive tenants resolve for requests.
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
	TenantTrial     = "trial"
	TenantCancelled = "cancelled"
)

// Tenant represents an isolated organization. It is the root of the
// multi-tenant model and is never hard-deleted.
type Tenant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string         `json:"slug" gorm:"type:varchar(63);uniqueIndex;not null"`
	Subdomain string         `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	Status    string         `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsActive reports whether requests may resolve to this tenant
func (t *Tenant) IsActive() bool {
	return t.Status == TenantActive
}

// ValidTenantStatus reports whether s is a known tenant status
func ValidTenantStatus(s string) bool {
	switch s {
	case TenantActive, TenantSuspended, TenantTrial, TenantCancelled:
		return true
	}
	return false
}
