package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings
	Database DatabaseConfig

	// Auth settings (tenant-scoped JWT / API key)
	Auth AuthConfig

	// Redis cache (optional, used by the risk catalog)
	Redis RedisConfig

	// Risk evaluation settings
	Risk RiskConfig

	// OpenTelemetry tracing
	Otel OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"lattice"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"lattice"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// AuthConfig holds tenant authentication settings.
//
// Requests authenticate either with a bearer JWT (HS256, carrying tenant_id
// and user_id claims) or with a static API key plus an X-Tenant-ID header for
// machine-to-machine callers.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret for bearer tokens
	JWTSecret string `env:"AUTH_JWT_SECRET" envDefault:""`

	// APIKey is the static API key accepted via the X-API-Key header
	APIKey string `env:"AUTH_API_KEY" envDefault:""`

	// DebugTenantID bypasses auth in debug mode, scoping all requests to this tenant
	DebugTenantID string `env:"AUTH_DEBUG_TENANT_ID" envDefault:""`
}

// IsConfigured returns true if at least one auth mechanism is set up
func (a *AuthConfig) IsConfigured() bool {
	return a.JWTSecret != "" || a.APIKey != ""
}

// RedisConfig holds Redis connection settings for the catalog cache
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:""`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"5m"`
}

// IsConfigured returns true if a Redis address is set
func (r *RedisConfig) IsConfigured() bool {
	return r.Addr != ""
}

// RiskConfig holds risk evaluation settings
type RiskConfig struct {
	// WarningThreshold is the score at which an opportunity is flagged (0-100)
	WarningThreshold float64 `env:"RISK_WARNING_THRESHOLD" envDefault:"70"`

	// SweepSchedule is the cron expression for the early-warning sweep
	SweepSchedule string `env:"RISK_SWEEP_SCHEDULE" envDefault:"0 */6 * * *"`

	// SweepEnabled toggles the periodic early-warning sweep
	SweepEnabled bool `env:"RISK_SWEEP_ENABLED" envDefault:"true"`

	// WorkerIntervalMs is the evaluation worker polling interval in milliseconds
	WorkerIntervalMs int `env:"RISK_WORKER_INTERVAL_MS" envDefault:"5000"`

	// WorkerBatchSize is the number of evaluation jobs to process per poll
	WorkerBatchSize int `env:"RISK_WORKER_BATCH_SIZE" envDefault:"10"`

	// MaxAttempts is the maximum number of attempts per evaluation job
	MaxAttempts int `env:"RISK_MAX_ATTEMPTS" envDefault:"3"`
}

// WorkerInterval returns the worker interval as a Duration
func (r *RiskConfig) WorkerInterval() time.Duration {
	return time.Duration(r.WorkerIntervalMs) * time.Millisecond
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.Bool("redis_cache", cfg.Redis.IsConfigured()),
	)

	return cfg, nil
}
