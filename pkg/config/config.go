package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"password"`
	DBName          string        `env:"DB_NAME" envDefault:"eventhub"`
	SSLMode         string        `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	LogLevel        string        `env:"DB_LOG_LEVEL" envDefault:"warn"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	if c.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GormLogLevel maps DB_LOG_LEVEL onto gorm's logger levels
func (c *DBConfig) GormLogLevel() logger.LogLevel {
	switch c.LogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"8080"`
	Env  string `env:"APP_ENV" envDefault:"development"`
}

// JWTConfig holds token signing configuration. Access and refresh tokens
// are signed with different secrets.
type JWTConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"change-me-access-secret"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"change-me-refresh-secret"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"eventhub"`
}

// TenancyConfig holds tenant resolution configuration
type TenancyConfig struct {
	// BaseDomain is stripped from the host before the subdomain is read,
	// e.g. "events.example.com".
	BaseDomain  string   `env:"TENANT_BASE_DOMAIN"`
	PublicPaths []string `env:"TENANT_PUBLIC_PATHS" envSeparator:"," envDefault:"/health,/metrics,/auth/refresh"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string `env:"METRICS_PREFIX" envDefault:"eventhub"`
}

// Config holds all configuration
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"eventhub"`
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Tenancy     TenancyConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Load loads configuration from the .env file (if present) and the environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Server.Env == "production" && (cfg.JWT.AccessSecret == "change-me-access-secret" || cfg.JWT.RefreshSecret == "change-me-refresh-secret") {
		return nil, ErrDefaultSecret
	}
	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return nil, ErrSharedSecret
	}

	return cfg, nil
}

// LogConfig returns the configuration as zap fields. Secrets are never included.
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.Duration("access_ttl", c.JWT.AccessTTL),
		zap.Duration("refresh_ttl", c.JWT.RefreshTTL),
		zap.String("tenant_base_domain", c.Tenancy.BaseDomain),
	}
}
