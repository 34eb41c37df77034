package model

import (
	"time"

	"gorm.io/gorm"
)

// User is a global identity. It may hold memberships in many tenants.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string         `json:"name" gorm:"type:varchar(100)"`
	Password     string         `json:"-" gorm:"type:varchar(255);not null"`
	IsSuperAdmin bool           `json:"is_super_admin" gorm:"not null;default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
