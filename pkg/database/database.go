package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"eventhub/internal/model"
	"eventhub/internal/tenancy"
	"eventhub/pkg/config"
	"eventhub/pkg/logger"
)

// Dialector returns the gorm dialector for the configured driver
func Dialector(dbConfig *config.DBConfig) (gorm.Dialector, error) {
	switch dbConfig.Driver {
	case "", "postgres":
		return postgres.New(postgres.Config{
			DSN:                  dbConfig.GetDSN(),
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		}), nil
	case "mysql":
		return mysql.New(mysql.Config{
			DSN:                       dbConfig.GetDSN(),
			DefaultStringSize:         255,
			SkipInitializeWithVersion: false,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbConfig.Driver)
	}
}

// InitDB opens the connection, applies pool settings and installs the
// tenant scoping plugin. Every tenant-owned query issued through the
// returned handle must carry a tenant in its context or go through
// tenancy.Bypass.
func InitDB(dbConfig *config.DBConfig) (*gorm.DB, error) {
	log := logger.GetLogger()

	dialector, err := Dialector(dbConfig)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(dbConfig.GormLogLevel()),
	})
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	if err := db.Use(tenancy.NewPlugin(model.TenantOwnedModels()...)); err != nil {
		return nil, fmt.Errorf("failed to install tenancy plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("Failed to get database object", zap.Error(err))
		return nil, err
	}

	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	log.Info("Database connected successfully", zap.String("driver", dialector.Name()))
	return db, nil
}

// MigrateModels runs migrations for every model of the service. The migrator
// inspects tenant-owned tables without a tenant, so it runs bypassed.
func MigrateModels(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	if err := migrationDB(db).AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return nil
}

func migrationDB(db *gorm.DB) *gorm.DB {
	return tenancy.Bypass(db, "schema migration")
}
