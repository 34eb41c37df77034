package tenancy

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventhub/pkg/logger"
	"eventhub/prometheus"
)

const bypassKey = "tenancy:bypass"

// Bypass disables tenant scoping for statements built from the returned db.
// It is the only escape hatch and must only be used by superadmin-gated code
// or maintenance jobs. Every bypassed statement is logged with reason.
func Bypass(db *gorm.DB, reason string) *gorm.DB {
	if reason == "" {
		reason = "unspecified"
	}
	return db.Set(bypassKey, reason)
}

func bypassReason(db *gorm.DB) (string, bool) {
	v, ok := db.Get(bypassKey)
	if !ok {
		return "", false
	}
	reason, ok := v.(string)
	return reason, ok
}

// Plugin scopes every statement on a tenant-owned model to the tenant bound
// to the statement's context.
type Plugin struct {
	models []interface{}
	tables map[string]struct{}
	marked sync.Map // reflect.Type -> bool
}

// NewPlugin returns the scoping plugin. Models embedding Owned are detected
// on their own; models listed here also have their table names guarded when
// queried without a model (db.Table("events")).
func NewPlugin(models ...interface{}) *Plugin {
	return &Plugin{models: models}
}

// Name implements gorm.Plugin.
func (p *Plugin) Name() string {
	return "tenancy"
}

// Initialize implements gorm.Plugin.
func (p *Plugin) Initialize(db *gorm.DB) error {
	p.tables = make(map[string]struct{}, len(p.models))
	for _, m := range p.models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return fmt.Errorf("tenancy: parse %T: %w", m, err)
		}
		if stmt.Schema.LookUpField(ColumnTenantID) == nil {
			return fmt.Errorf("tenancy: %T has no %s column", m, ColumnTenantID)
		}
		p.tables[stmt.Schema.Table] = struct{}{}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:before_create").Register("tenancy:create", p.scopeCreate); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("tenancy:query", p.scopeRead("query")); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenancy:row", p.scopeRead("row")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:before_update").Register("tenancy:update", p.scopeUpdate); err != nil {
		return err
	}
	return cb.Delete().Before("gorm:before_delete").Register("tenancy:delete", p.scopeDelete)
}

func (p *Plugin) scopeRead(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		tenantID, ok := p.guard(db, op)
		if !ok {
			return
		}
		// Raw SQL is already built; a WHERE clause added now would be ignored.
		if db.Statement.SQL.Len() > 0 {
			p.violation(db, op, ErrRawScopedQuery)
			return
		}
		scopeWhere(db.Statement, tenantID)
	}
}

func (p *Plugin) scopeUpdate(db *gorm.DB) {
	tenantID, ok := p.guard(db, "update")
	if !ok {
		return
	}
	// The tenant predicate would otherwise satisfy gorm's missing-WHERE
	// check and turn an unconditioned update into a tenant-wide one.
	if unconditioned(db) {
		_ = db.AddError(gorm.ErrMissingWhereClause)
		return
	}
	db.Statement.Omits = append(db.Statement.Omits, ColumnTenantID)
	scopeWhere(db.Statement, tenantID)
}

func (p *Plugin) scopeDelete(db *gorm.DB) {
	tenantID, ok := p.guard(db, "delete")
	if !ok {
		return
	}
	if unconditioned(db) {
		_ = db.AddError(gorm.ErrMissingWhereClause)
		return
	}
	scopeWhere(db.Statement, tenantID)
}

func (p *Plugin) scopeCreate(db *gorm.DB) {
	tenantID, ok := p.guard(db, "create")
	if !ok {
		return
	}
	stmt := db.Statement

	if c, exists := stmt.Clauses["ON CONFLICT"]; exists {
		if oc, isOC := c.Expression.(clause.OnConflict); isOC && (oc.UpdateAll || len(oc.DoUpdates) > 0) {
			p.violation(db, "create", ErrScopedUpsert)
			return
		}
	}

	if foreignTenantRows(stmt, tenantID) {
		p.violation(db, "create", ErrCrossTenantWrite)
		return
	}

	stmt.SetColumn(ColumnTenantID, tenantID, true)
}

// guard decides whether the statement must be scoped and returns the tenant
// to scope it to.
func (p *Plugin) guard(db *gorm.DB, op string) (uint, bool) {
	if db.Error != nil || !p.isOwned(db.Statement) {
		return 0, false
	}

	if reason, ok := bypassReason(db); ok {
		table := tableName(db.Statement)
		logger.FromContext(db.Statement.Context).Info("tenant scoping bypassed",
			zap.String("table", table),
			zap.String("operation", op),
			zap.String("reason", reason))
		prometheus.RecordScopingBypass(table, op)
		return 0, false
	}

	tenantID, ok := TenantIDFromContext(db.Statement.Context)
	if !ok {
		p.violation(db, op, ErrNoTenantInContext)
		return 0, false
	}
	return tenantID, true
}

func (p *Plugin) violation(db *gorm.DB, op string, err error) {
	table := tableName(db.Statement)
	logger.FromContext(db.Statement.Context).Warn("tenant scoping violation",
		zap.Bool("scoping_violation", true),
		zap.String("table", table),
		zap.String("operation", op),
		zap.Error(err))
	prometheus.RecordScopingViolation(table, op)
	_ = db.AddError(fmt.Errorf("%w (table=%s op=%s)", err, table, op))
}

func (p *Plugin) isOwned(stmt *gorm.Statement) bool {
	if stmt.Schema == nil {
		_, ok := p.tables[stmt.Table]
		return ok
	}
	if _, ok := p.tables[stmt.Schema.Table]; ok {
		return true
	}

	t := stmt.Schema.ModelType
	if v, ok := p.marked.Load(t); ok {
		return v.(bool)
	}
	_, isOwner := reflect.New(t).Interface().(owner)
	p.marked.Store(t, isOwner)
	return isOwner
}

// unconditioned reports whether an update or delete has neither a WHERE
// clause nor a primary key gorm would turn into one.
func unconditioned(db *gorm.DB) bool {
	stmt := db.Statement
	if db.AllowGlobalUpdate {
		return false
	}
	if _, ok := stmt.Clauses["WHERE"]; ok {
		return false
	}
	if stmt.Schema == nil {
		return true
	}

	hasKey := func(rv reflect.Value) bool {
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return false
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			return rv.Len() > 0
		case reflect.Struct:
			if rv.Type() != stmt.Schema.ModelType {
				return false
			}
			for _, pf := range stmt.Schema.PrimaryFields {
				if _, zero := pf.ValueOf(stmt.Context, rv); !zero {
					return true
				}
			}
		}
		return false
	}

	if stmt.Dest != nil && hasKey(reflect.ValueOf(stmt.Dest)) {
		return false
	}
	return !stmt.ReflectValue.IsValid() || !hasKey(stmt.ReflectValue)
}

// scopeWhere ANDs the tenant predicate onto the statement's conditions. The
// caller's conditions are grouped first so a chained Or cannot escape it.
func scopeWhere(stmt *gorm.Statement, tenantID uint) {
	tenant := tenantEq(tenantID)
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		stmt.AddClause(clause.Where{Exprs: []clause.Expression{tenant}})
		return
	}
	where, isWhere := c.Expression.(clause.Where)
	if !isWhere || len(where.Exprs) == 0 {
		stmt.AddClause(clause.Where{Exprs: []clause.Expression{tenant}})
		return
	}
	c.Expression = clause.Where{Exprs: []clause.Expression{clause.And(where.Exprs...), tenant}}
	stmt.Clauses["WHERE"] = c
}

func foreignTenantRows(stmt *gorm.Statement, tenantID uint) bool {
	switch dest := stmt.Dest.(type) {
	case map[string]interface{}:
		return foreignInMap(dest, tenantID)
	case []map[string]interface{}:
		for _, m := range dest {
			if foreignInMap(m, tenantID) {
				return true
			}
		}
		return false
	}

	if stmt.Schema == nil {
		return false
	}
	field := stmt.Schema.LookUpField(ColumnTenantID)
	if field == nil {
		return false
	}

	foreign := func(rv reflect.Value) bool {
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return false
		}
		v, zero := field.ValueOf(stmt.Context, rv)
		if zero {
			return false
		}
		id, ok := v.(uint)
		return !ok || id != tenantID
	}

	rv := stmt.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if foreign(rv.Index(i)) {
				return true
			}
		}
	case reflect.Struct:
		return foreign(rv)
	}
	return false
}

func foreignInMap(m map[string]interface{}, tenantID uint) bool {
	for _, key := range []string{ColumnTenantID, "TenantID"} {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if id, isUint := v.(uint); !isUint || id != tenantID {
			return true
		}
	}
	return false
}

func tableName(stmt *gorm.Statement) string {
	if stmt.Schema != nil {
		return stmt.Schema.Table
	}
	return stmt.Table
}
