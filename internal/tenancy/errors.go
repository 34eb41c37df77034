package tenancy

import "errors"

var (
	// ErrInvalidTenantID is returned when binding the zero tenant id.
	ErrInvalidTenantID = errors.New("tenancy: invalid tenant id")

	// ErrTenantReassigned is returned when a context already bound to one
	// tenant is rebound to another.
	ErrTenantReassigned = errors.New("tenancy: tenant already set for this context")

	// ErrNoTenantInContext marks a tenant-owned data access attempted without
	// a tenant and without Bypass. It is a programming defect, not a not-found.
	ErrNoTenantInContext = errors.New("tenancy: scoped access without tenant in context")

	// ErrCrossTenantWrite is returned when a create carries a tenant id other
	// than the context's.
	ErrCrossTenantWrite = errors.New("tenancy: row belongs to another tenant")

	// ErrScopedUpsert is returned for ON CONFLICT DO UPDATE on tenant-owned tables.
	ErrScopedUpsert = errors.New("tenancy: upsert on tenant-owned table is not scoped")

	// ErrRawScopedQuery is returned when raw SQL is materialized into a
	// tenant-owned model outside Bypass.
	ErrRawScopedQuery = errors.New("tenancy: raw SQL on tenant-owned model is not scoped")
)

// IsScopingViolation reports whether err was raised by the scoping plugin.
func IsScopingViolation(err error) bool {
	return errors.Is(err, ErrNoTenantInContext) ||
		errors.Is(err, ErrCrossTenantWrite) ||
		errors.Is(err, ErrScopedUpsert) ||
		errors.Is(err, ErrRawScopedQuery)
}
