// Package config resolves runtime configuration from the environment and an
// optional YAML seed file used to bootstrap governance.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// ServerConfig controls the HTTP listener and the middleware in front of it.
type ServerConfig struct {
	Host          string   `env:"SERVER_HOST,default=0.0.0.0"`
	Port          int      `env:"SERVER_PORT,default=8080"`
	ReadTimeout   int      `env:"SERVER_READ_TIMEOUT,default=30"`
	WriteTimeout  int      `env:"SERVER_WRITE_TIMEOUT,default=30"`
	AllowUnsigned bool     `env:"SERVER_ALLOW_UNSIGNED,default=false"`
	CORSOrigins   []string `env:"SERVER_CORS_ORIGINS,default=*"`
	RateLimit     float64  `env:"SERVER_RATE_LIMIT,default=50"`
	RateBurst     int      `env:"SERVER_RATE_BURST,default=100"`
	AuditLogPath  string   `env:"SERVER_AUDIT_LOG"`
}

// DatabaseConfig selects the persistence backend. An empty DSN keeps all
// state in memory.
type DatabaseConfig struct {
	DSN             string `env:"DATABASE_URL"`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=16"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=4"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300"`
}

// RedisConfig, when Addr is set, moves the usage ledger to Redis so several
// instances can share hourly buckets.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

// LoggingConfig mirrors pkg/logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=json"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=bridgelayer"`
}

// MonitorConfig controls the background gauge refresh and bucket retention.
type MonitorConfig struct {
	RefreshSpec    string `env:"MONITOR_REFRESH,default=@every 15s"`
	RetentionHours int    `env:"MONITOR_RETENTION_HOURS,default=168"`
}

// TreasuryConfig points at a remote treasury service. When URL is empty the
// roles come from the seed file instead.
type TreasuryConfig struct {
	URL string `env:"TREASURY_URL"`
}

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Monitor  MonitorConfig
	Treasury TreasuryConfig

	SeedPath      string `env:"SEED_CONFIG,default=config/bridgelayer.yaml"`
	DisableEvents bool   `env:"EVENTS_DISABLED,default=false"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server port %d out of range", cfg.Server.Port)
	}
	return &cfg, nil
}
