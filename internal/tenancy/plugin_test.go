package tenancy_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"eventhub/internal/tenancy"
)

type note struct {
	ID uint
	tenancy.Owned
	Body string
}

type setting struct {
	ID   uint
	Name string
}

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.Use(tenancy.NewPlugin(&note{})))
	return db
}

func tenantCtx(t *testing.T, id uint) context.Context {
	t.Helper()
	ctx, err := tenancy.WithTenantID(context.Background(), id)
	require.NoError(t, err)
	return ctx
}

func TestPluginScopesQuery(t *testing.T) {
	db := newDryRunDB(t)

	var notes []note
	stmt := db.WithContext(tenantCtx(t, 7)).Find(&notes).Statement

	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `"notes"."tenant_id" = $1`)
	assert.Equal(t, []interface{}{uint(7)}, stmt.Vars)
}

func TestPluginKeepsCallerConditions(t *testing.T) {
	db := newDryRunDB(t)

	var n note
	stmt := db.WithContext(tenantCtx(t, 7)).Where("body = ?", "hello").First(&n, 5).Statement

	require.NoError(t, stmt.Error)
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "body = $1")
	assert.Contains(t, sql, `"notes"."tenant_id"`)
	assert.Contains(t, sql, `"notes"."id"`)
	assert.Contains(t, stmt.Vars, uint(7))
}

func TestPluginScopesCount(t *testing.T) {
	db := newDryRunDB(t)

	var count int64
	stmt := db.WithContext(tenantCtx(t, 9)).Model(&note{}).Count(&count).Statement

	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `"notes"."tenant_id" = $1`)
	assert.Contains(t, stmt.Vars, uint(9))
}

func TestPluginScopesTableOnlyQuery(t *testing.T) {
	db := newDryRunDB(t)

	var rows []map[string]interface{}
	stmt := db.WithContext(tenantCtx(t, 7)).Table("notes").Find(&rows).Statement

	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), "tenant_id")

	err := db.Table("notes").Find(&rows).Error
	assert.ErrorIs(t, err, tenancy.ErrNoTenantInContext)
}

func TestPluginFailsClosedWithoutTenant(t *testing.T) {
	db := newDryRunDB(t)

	var notes []note
	res := db.Find(&notes)

	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, tenancy.ErrNoTenantInContext)
	assert.True(t, tenancy.IsScopingViolation(res.Error))
	assert.Empty(t, res.Statement.SQL.String())
}

func TestPluginIgnoresUnownedModels(t *testing.T) {
	db := newDryRunDB(t)

	var settings []setting
	stmt := db.Find(&settings).Statement

	require.NoError(t, stmt.Error)
	assert.NotContains(t, stmt.SQL.String(), "tenant_id")
}

func TestPluginStampsCreate(t *testing.T) {
	db := newDryRunDB(t)

	n := note{Body: "hello"}
	stmt := db.WithContext(tenantCtx(t, 7)).Create(&n).Statement

	require.NoError(t, stmt.Error)
	assert.Equal(t, uint(7), n.TenantID)
	assert.Contains(t, stmt.SQL.String(), `"tenant_id"`)
	assert.Contains(t, stmt.Vars, uint(7))
}

func TestPluginStampsBatchCreate(t *testing.T) {
	db := newDryRunDB(t)

	notes := []note{{Body: "a"}, {Body: "b"}}
	err := db.WithContext(tenantCtx(t, 7)).Create(&notes).Error

	require.NoError(t, err)
	for _, n := range notes {
		assert.Equal(t, uint(7), n.TenantID)
	}
}

func TestPluginRefusesCrossTenantCreate(t *testing.T) {
	db := newDryRunDB(t)

	n := note{Owned: tenancy.Owned{TenantID: 9}, Body: "smuggled"}
	err := db.WithContext(tenantCtx(t, 7)).Create(&n).Error

	assert.ErrorIs(t, err, tenancy.ErrCrossTenantWrite)
	assert.Equal(t, uint(9), n.TenantID)
}

func TestPluginAcceptsMatchingTenantOnCreate(t *testing.T) {
	db := newDryRunDB(t)

	n := note{Owned: tenancy.Owned{TenantID: 7}, Body: "ok"}
	err := db.WithContext(tenantCtx(t, 7)).Create(&n).Error

	assert.NoError(t, err)
}

func TestPluginRefusesCreateWithoutTenant(t *testing.T) {
	db := newDryRunDB(t)

	err := db.Create(&note{Body: "orphan"}).Error

	assert.ErrorIs(t, err, tenancy.ErrNoTenantInContext)
}

func TestPluginRefusesUpsert(t *testing.T) {
	db := newDryRunDB(t)
	ctx := tenantCtx(t, 7)

	err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&note{Body: "x"}).Error
	assert.ErrorIs(t, err, tenancy.ErrScopedUpsert)

	err = db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&note{Body: "x"}).Error
	assert.NoError(t, err)
}

func TestPluginScopesUpdate(t *testing.T) {
	db := newDryRunDB(t)

	stmt := db.WithContext(tenantCtx(t, 7)).
		Model(&note{ID: 3}).
		Updates(map[string]interface{}{"body": "edited", "tenant_id": uint(9)}).
		Statement

	require.NoError(t, stmt.Error)
	sql := stmt.SQL.String()
	require.Contains(t, sql, "WHERE")

	set := sql[:strings.Index(sql, "WHERE")]
	assert.Contains(t, set, `"body"`)
	assert.NotContains(t, set, "tenant_id")
	assert.Contains(t, sql[strings.Index(sql, "WHERE"):], `"notes"."tenant_id"`)
	assert.Contains(t, stmt.Vars, uint(7))
	assert.NotContains(t, stmt.Vars, uint(9))
}

func TestPluginScopesDelete(t *testing.T) {
	db := newDryRunDB(t)

	stmt := db.WithContext(tenantCtx(t, 7)).Delete(&note{ID: 3}).Statement

	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `"notes"."tenant_id"`)
	assert.Contains(t, stmt.Vars, uint(7))
	assert.Contains(t, stmt.Vars, uint(3))
}

func TestPluginGroupsCallerOrConditions(t *testing.T) {
	db := newDryRunDB(t)
	ctx := tenantCtx(t, 7)

	var notes []note
	stmt := db.WithContext(ctx).Where("id = ?", 1).Or("body = ?", "x").Find(&notes).Statement
	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `WHERE (id = $1 OR body = $2) AND "notes"."tenant_id" = $3`)
	assert.Equal(t, []interface{}{1, "x", uint(7)}, stmt.Vars)

	stmt = db.WithContext(ctx).Model(&note{}).Where("id = ?", 1).Or("body = ?", "x").
		Updates(map[string]interface{}{"body": "y"}).Statement
	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `WHERE (id = $2 OR body = $3) AND "notes"."tenant_id" = $4`)

	stmt = db.WithContext(ctx).Where("id = ?", 1).Or("body = ?", "x").Delete(&note{}).Statement
	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `WHERE (id = $1 OR body = $2) AND "notes"."tenant_id" = $3`)
}

func TestPluginGroupsOrInsideSingleCondition(t *testing.T) {
	db := newDryRunDB(t)

	var notes []note
	stmt := db.WithContext(tenantCtx(t, 7)).Where("id = ? OR body = ?", 1, "x").Find(&notes).Statement

	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `WHERE (id = $1 OR body = $2) AND "notes"."tenant_id" = $3`)
}

func TestPluginKeepsMissingWhereGuard(t *testing.T) {
	db := newDryRunDB(t)
	ctx := tenantCtx(t, 7)

	err := db.WithContext(ctx).Delete(&note{}).Error
	assert.ErrorIs(t, err, gorm.ErrMissingWhereClause)

	err = db.WithContext(ctx).Model(&note{}).Update("body", "all").Error
	assert.ErrorIs(t, err, gorm.ErrMissingWhereClause)

	stmt := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&note{}).Statement
	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `"notes"."tenant_id"`)
}

func TestPluginRefusesRawScopedQuery(t *testing.T) {
	db := newDryRunDB(t)

	var notes []note
	err := db.WithContext(tenantCtx(t, 7)).Raw("SELECT * FROM notes").Find(&notes).Error

	assert.ErrorIs(t, err, tenancy.ErrRawScopedQuery)
}

func TestBypassSkipsScoping(t *testing.T) {
	db := newDryRunDB(t)

	var notes []note
	stmt := tenancy.Bypass(db, "test listing").Find(&notes).Statement

	require.NoError(t, stmt.Error)
	assert.NotContains(t, stmt.SQL.String(), "tenant_id")
}

func TestBypassWithExplicitTenant(t *testing.T) {
	db := newDryRunDB(t)

	var notes []note
	stmt := tenancy.Bypass(db, "superadmin").Scopes(tenancy.ForTenant(9)).Find(&notes).Statement

	require.NoError(t, stmt.Error)
	assert.Contains(t, stmt.SQL.String(), `"notes"."tenant_id" = $1`)
	assert.Equal(t, []interface{}{uint(9)}, stmt.Vars)
}

func TestBypassDoesNotLeakToBaseDB(t *testing.T) {
	db := newDryRunDB(t)

	_ = tenancy.Bypass(db, "one-off")

	var notes []note
	err := db.Find(&notes).Error
	assert.ErrorIs(t, err, tenancy.ErrNoTenantInContext)
}

func TestNewPluginRejectsModelWithoutTenantColumn(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true, Logger: gormlogger.Discard})
	require.NoError(t, err)

	err = db.Use(tenancy.NewPlugin(&setting{}))
	assert.Error(t, err)
}
