// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Gateway environments.
const (
	GatewayEnvSandbox    = "sandbox"
	GatewayEnvProduction = "production"
)

// ErrUnknownGatewayEnv is returned when GATEWAY_ENV is neither sandbox nor production.
var ErrUnknownGatewayEnv = errors.New("unknown gateway environment")

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"5005"`

	// Database (PostgreSQL)
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// Cache (Redis)
	RedisURL      string `env:"REDIS_URL,required"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Access tokens
	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"60m"`

	// Banking aggregation gateway
	GatewayEnv             string        `env:"GATEWAY_ENV" envDefault:"sandbox"`
	GatewaySandboxURL      string        `env:"GATEWAY_SANDBOX_URL" envDefault:"https://sandbox.belvo.com"`
	GatewayProductionURL   string        `env:"GATEWAY_PRODUCTION_URL" envDefault:"https://api.belvo.com"`
	GatewaySecretID        string        `env:"GATEWAY_SECRET_ID"`
	GatewaySecretPassword1 string        `env:"GATEWAY_SECRET_PASSWORD_1"`
	GatewaySecretPassword2 string        `env:"GATEWAY_SECRET_PASSWORD_2"`
	GatewayTimeout         time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
	TransactionsPageSize   int           `env:"TRANSACTIONS_PAGE_SIZE" envDefault:"10"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Signup/signin rate limiting (per client IP)
	RateLimitAuthEnabled bool `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthRPM     int  `env:"RATE_LIMIT_AUTH_RPM" envDefault:"30"`
	RateLimitAuthBurst   int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"10"`

	// Comma-separated IPs or CIDRs of reverse proxies whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// CORS configuration
	// Comma-separated list of allowed origins. "*" allows any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GatewayBaseURL returns the gateway base URL selected by GatewayEnv.
func (c *Config) GatewayBaseURL() string {
	if c.GatewayEnv == GatewayEnvProduction {
		return strings.TrimSuffix(c.GatewayProductionURL, "/")
	}
	return strings.TrimSuffix(c.GatewaySandboxURL, "/")
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.GatewayEnv {
	case GatewayEnvSandbox, GatewayEnvProduction:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGatewayEnv, c.GatewayEnv)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.TransactionsPageSize <= 0 {
		return errors.New("TRANSACTIONS_PAGE_SIZE must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MigrateConfig is the subset of configuration needed to run migrations.
type MigrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

// LoadMigrate reads only what the migrate command needs, so schema changes
// can run without gateway or token secrets present.
func LoadMigrate() (*MigrateConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &MigrateConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
