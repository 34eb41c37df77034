// Package tenancy carries the request's tenant through context.Context and
// enforces tenant isolation at the data-access layer with a gorm plugin.
package tenancy

import (
	"context"
)

type tenantKey struct{}

// WithTenantID returns a copy of ctx bound to the tenant. A context that is
// already bound keeps its tenant: rebinding to a different id fails with
// ErrTenantReassigned, rebinding to the same id is a no-op.
func WithTenantID(ctx context.Context, id uint) (context.Context, error) {
	if id == 0 {
		return ctx, ErrInvalidTenantID
	}
	if current, ok := TenantIDFromContext(ctx); ok {
		if current != id {
			return ctx, ErrTenantReassigned
		}
		return ctx, nil
	}
	return context.WithValue(ctx, tenantKey{}, id), nil
}

// TenantIDFromContext returns the tenant bound to ctx.
func TenantIDFromContext(ctx context.Context) (uint, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(tenantKey{}).(uint)
	return id, ok && id != 0
}

// MustTenantID returns the tenant bound to ctx and panics if there is none.
// Only for code that is unreachable without tenant resolution.
func MustTenantID(ctx context.Context) uint {
	id, ok := TenantIDFromContext(ctx)
	if !ok {
		panic("tenancy: no tenant in context")
	}
	return id
}
