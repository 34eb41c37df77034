package store

import (
	"context"

	"gorm.io/gorm"

	"eventhub/internal/model"
	"eventhub/prometheus"
)

// MembershipStore reads and administers memberships. Memberships are looked
// up across tenants during authentication, so every tenant filter here is
// explicit.
type MembershipStore struct {
	db *gorm.DB
}

// NewMembershipStore creates a membership store
func NewMembershipStore(db *gorm.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) withRoles(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Tenant").Preload("Assignments.Role")
}

// FindByID returns the membership with its tenant and current role assignments
func (s *MembershipStore) FindByID(ctx context.Context, id uint) (*model.Membership, error) {
	defer prometheus.TrackDBOperation("query")()

	var m model.Membership
	if err := s.withRoles(ctx).First(&m, id).Error; err != nil {
		return nil, wrap("find membership", err)
	}
	return &m, nil
}

// FindByUserAndTenant returns the membership of a user in a tenant
func (s *MembershipStore) FindByUserAndTenant(ctx context.Context, userID, tenantID uint) (*model.Membership, error) {
	defer prometheus.TrackDBOperation("query")()

	var m model.Membership
	err := s.withRoles(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		First(&m).Error
	if err != nil {
		return nil, wrap("find membership by user and tenant", err)
	}
	return &m, nil
}

// SetStatus changes the status of a membership that belongs to tenantID
func (s *MembershipStore) SetStatus(ctx context.Context, tenantID, id uint, status string) error {
	defer prometheus.TrackDBOperation("update")()

	res := s.db.WithContext(ctx).Model(&model.Membership{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("status", status)
	if res.Error != nil {
		return wrap("set membership status", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("set membership status", ErrNotFound)
	}
	return nil
}

// RevokeScope removes every assignment of the given scope from a membership
// that belongs to tenantID and returns how many were removed
func (s *MembershipStore) RevokeScope(ctx context.Context, tenantID, id uint, scope string) (int64, error) {
	defer prometheus.TrackDBOperation("delete")()

	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Membership
		if err := tx.Where("id = ? AND tenant_id = ?", id, tenantID).First(&m).Error; err != nil {
			return err
		}

		roleIDs := tx.Model(&model.Role{}).Select("id").Where("scope = ?", scope)
		res := tx.Where("membership_id = ? AND role_id IN (?)", m.ID, roleIDs).Delete(&model.RoleAssignment{})
		count = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, wrap("revoke membership scope", err)
	}
	return count, nil
}
