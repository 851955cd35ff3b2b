// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"session-lifecycle-manager/internal/session/service"
)

// Session store backends selectable with SESSION_STORE.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC health server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; required when SessionStore is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionStore selects the session store backend: postgres, sqlite or memory.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SQLitePath is the database file used when SessionStore is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// LocalStorePath is the bbolt file holding the remember-me flag and timestamps. Empty keeps them in memory.
	LocalStorePath string `mapstructure:"LOCAL_STORE_PATH"`
	// RedisURL enables the Redis credential revocation list (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`

	// SessionDurationMinutes is the lifetime of a non-remembered session.
	SessionDurationMinutes int `mapstructure:"SESSION_DURATION_MINUTES"`
	// ExtendedDurationDays is the lifetime of a remembered session.
	ExtendedDurationDays int `mapstructure:"EXTENDED_DURATION_DAYS"`
	// InactivityTimeoutRaw is the idle window (e.g. "30m").
	InactivityTimeoutRaw string `mapstructure:"INACTIVITY_TIMEOUT"`
	// SweepIntervalRaw is the expired session sweep cadence (e.g. "5m").
	SweepIntervalRaw string `mapstructure:"SWEEP_INTERVAL"`
	// RememberStaleAfterRaw is the longest gap after which a remembered session still resumes (e.g. "720h").
	RememberStaleAfterRaw string `mapstructure:"REMEMBER_STALE_AFTER"`
	// ActivityWriteIntervalRaw limits last-activity writes (e.g. "1s"); "0s" writes every call.
	ActivityWriteIntervalRaw string `mapstructure:"ACTIVITY_WRITE_INTERVAL"`
	// SessionPolicyFile is an optional Rego module overriding the built-in lifetime policy.
	SessionPolicyFile string `mapstructure:"SESSION_POLICY_FILE"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Optional for verify-only hosts.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; derived from the private key when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "720h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	// OTLPEndpoint enables OTel export when set (host:port or URL of the collector).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_STORE", StorePostgres)
	v.SetDefault("SQLITE_PATH", "sessions.db")
	v.SetDefault("LOCAL_STORE_PATH", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_DURATION_MINUTES", 480)
	v.SetDefault("EXTENDED_DURATION_DAYS", 30)
	v.SetDefault("INACTIVITY_TIMEOUT", "30m")
	v.SetDefault("SWEEP_INTERVAL", "5m")
	v.SetDefault("REMEMBER_STALE_AFTER", "720h") // 30d
	v.SetDefault("ACTIVITY_WRITE_INTERVAL", "1s")
	v.SetDefault("SESSION_POLICY_FILE", "")
	v.SetDefault("JWT_ISSUER", "session-auth")
	v.SetDefault("JWT_AUDIENCE", "session-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "720h")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "session-lifecycle-manager")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	switch cfg.SessionStore {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when SESSION_STORE=postgres")
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("config: SQLITE_PATH must be set when SESSION_STORE=sqlite")
		}
	case StoreMemory:
		if cfg.Env == "production" {
			return nil, errors.New("config: SESSION_STORE=memory must not be used when APP_ENV=production")
		}
	default:
		return nil, fmt.Errorf("config: unknown SESSION_STORE %q", cfg.SessionStore)
	}

	if cfg.SessionDurationMinutes <= 0 {
		return nil, errors.New("config: SESSION_DURATION_MINUTES must be positive")
	}
	if cfg.ExtendedDurationDays <= 0 {
		return nil, errors.New("config: EXTENDED_DURATION_DAYS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 720*time.Hour)
}

// InactivityTimeout returns the idle window. Returns 30m if unset or invalid.
func (c *Config) InactivityTimeout() time.Duration {
	return parseDuration(c.InactivityTimeoutRaw, 30*time.Minute)
}

// SweepInterval returns the sweep cadence. Returns 5m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.SweepIntervalRaw, 5*time.Minute)
}

// RememberStaleAfter returns the remembered session staleness bound. Returns 720h if unset or invalid.
func (c *Config) RememberStaleAfter() time.Duration {
	return parseDuration(c.RememberStaleAfterRaw, 720*time.Hour)
}

// ActivityWriteInterval returns the last-activity write interval. Zero is allowed; returns 1s if invalid.
func (c *Config) ActivityWriteInterval() time.Duration {
	d, err := time.ParseDuration(c.ActivityWriteIntervalRaw)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// ServiceConfig maps the session settings onto the manager configuration.
func (c *Config) ServiceConfig() service.Config {
	cfg := service.DefaultConfig()
	cfg.SessionDuration = time.Duration(c.SessionDurationMinutes) * time.Minute
	cfg.ExtendedDuration = time.Duration(c.ExtendedDurationDays) * 24 * time.Hour
	cfg.InactivityTimeout = c.InactivityTimeout()
	cfg.SweepInterval = c.SweepInterval()
	cfg.RememberStaleAfter = c.RememberStaleAfter()
	cfg.ActivityWriteInterval = c.ActivityWriteInterval()
	return cfg
}

// TelemetryEnabled reports whether an OTLP endpoint is configured.
func (c *Config) TelemetryEnabled() bool {
	return c != nil && strings.TrimSpace(c.OTLPEndpoint) != ""
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
