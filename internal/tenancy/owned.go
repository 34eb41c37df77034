package tenancy

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ColumnTenantID is the foreign key every tenant-owned table carries.
const ColumnTenantID = "tenant_id"

// Owned is embedded by every tenant-owned model. Embedding it is what opts a
// model into automatic scoping.
type Owned struct {
	TenantID uint `json:"tenant_id" gorm:"index;not null"`
}

func (Owned) tenantOwned() {}

type owner interface {
	tenantOwned()
}

// ForTenant filters a statement to one tenant explicitly. Pair it with Bypass
// whenever cross-tenant behavior is not actually wanted.
//
//	tenancy.Bypass(db, "superadmin event listing").Scopes(tenancy.ForTenant(id)).Find(&events)
func ForTenant(id uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(tenantEq(id))
	}
}

func tenantEq(id uint) clause.Expression {
	return clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: ColumnTenantID}, Value: id}
}
