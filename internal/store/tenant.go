package store

import (
	"context"

	"gorm.io/gorm"

	"eventhub/internal/model"
	"eventhub/prometheus"
)

// TenantStore reads and administers tenants
type TenantStore struct {
	db *gorm.DB
}

// NewTenantStore creates a tenant store
func NewTenantStore(db *gorm.DB) *TenantStore {
	return &TenantStore{db: db}
}

// FindByID returns the tenant with the given id
func (s *TenantStore) FindByID(ctx context.Context, id uint) (*model.Tenant, error) {
	return s.first(ctx, "find tenant by id", "id = ?", id)
}

// FindBySlug returns the tenant with the given slug
func (s *TenantStore) FindBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	return s.first(ctx, "find tenant by slug", "slug = ?", slug)
}

// FindBySubdomain returns the tenant with the given subdomain
func (s *TenantStore) FindBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	return s.first(ctx, "find tenant by subdomain", "subdomain = ?", subdomain)
}

func (s *TenantStore) first(ctx context.Context, op, query string, arg interface{}) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")()

	var tenant model.Tenant
	if err := s.db.WithContext(ctx).Where(query, arg).First(&tenant).Error; err != nil {
		return nil, wrap(op, err)
	}
	return &tenant, nil
}

// List returns every tenant ordered by id
func (s *TenantStore) List(ctx context.Context) ([]model.Tenant, error) {
	defer prometheus.TrackDBOperation("query")()

	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Order("id").Find(&tenants).Error; err != nil {
		return nil, wrap("list tenants", err)
	}
	return tenants, nil
}

// SetStatus changes a tenant's lifecycle status
func (s *TenantStore) SetStatus(ctx context.Context, id uint, status string) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("update")()

	res := s.db.WithContext(ctx).Model(&model.Tenant{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, wrap("set tenant status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap("set tenant status", ErrNotFound)
	}
	return s.FindByID(ctx, id)
}
