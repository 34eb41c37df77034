package model

import (
	"time"

	"gorm.io/gorm"

	"eventhub/internal/tenancy"
)

// Event is a tenant-owned competition or hackathon
type Event struct {
	ID uint `json:"id" gorm:"primaryKey"`
	tenancy.Owned
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	EndsAt      *time.Time     `json:"ends_at,omitempty"`
	CreatedBy   uint           `json:"created_by" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Team is a tenant-owned group of participants within an event
type Team struct {
	ID uint `json:"id" gorm:"primaryKey"`
	tenancy.Owned
	EventID   uint           `json:"event_id" gorm:"not null;index"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	CaptainID uint           `json:"captain_id" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Submission is a tenant-owned deliverable of a team
type Submission struct {
	ID uint `json:"id" gorm:"primaryKey"`
	tenancy.Owned
	TeamID    uint           `json:"team_id" gorm:"not null;index"`
	Title     string         `json:"title" gorm:"type:varchar(255);not null"`
	Content   string         `json:"content" gorm:"type:text"`
	CreatedBy uint           `json:"created_by" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Evaluation is a tenant-owned score given to a submission by an evaluator
type Evaluation struct {
	ID uint `json:"id" gorm:"primaryKey"`
	tenancy.Owned
	SubmissionID uint      `json:"submission_id" gorm:"not null;index"`
	EvaluatorID  uint      `json:"evaluator_id" gorm:"not null;index"`
	Score        int       `json:"score" gorm:"not null"`
	Comment      string    `json:"comment" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TenantOwnedModels lists every model the scoping plugin guards by table name
func TenantOwnedModels() []interface{} {
	return []interface{}{&Event{}, &Team{}, &Submission{}, &Evaluation{}}
}

// AllModels lists every model for migrations
func AllModels() []interface{} {
	return append([]interface{}{&Tenant{}, &User{}, &Membership{}, &Role{}, &RoleAssignment{}}, TenantOwnedModels()...)
}
