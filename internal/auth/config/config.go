package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the auth module.
type Config struct {
	// MongoDB Configuration
	MongoDBURI   string `env:"MONGODB_URI,required"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"projectgoat"`

	// Session timeout policy. The server is the sole source of truth for
	// expiry; clients only mirror these values for advisory countdowns.
	IdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	AbsoluteTimeout time.Duration `env:"SESSION_ABSOLUTE_TIMEOUT" envDefault:"8h"`

	// Login rate limiting
	RateLimitWindow      time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" envDefault:"15m"`
	RateLimitMaxFailures int           `env:"LOGIN_RATE_LIMIT_MAX_FAILURES" envDefault:"5"`
	AttemptRetention     time.Duration `env:"LOGIN_ATTEMPT_RETENTION" envDefault:"720h"`

	// Paths exempt from CSRF validation. Login and register create the
	// session and token; the health check is unauthenticated.
	CSRFExemptPaths []string `env:"CSRF_EXEMPT_PATHS" envSeparator:"," envDefault:"/api/auth/login,/api/auth/register,/api/health"`

	// Audit trail. The Redis stream is capped so the trail cannot grow
	// without bound.
	AuditStreamMaxLength int64 `env:"AUDIT_STREAM_MAX_LENGTH" envDefault:"10000"`

	// CORS
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}

	if cfg.MongoDBURI == "" {
		return nil, errors.New("mongodb_uri is required")
	}
	if cfg.IdleTimeout <= 0 {
		return nil, errors.New("session idle timeout must be positive")
	}
	if cfg.AbsoluteTimeout <= cfg.IdleTimeout {
		return nil, errors.New("session absolute timeout must exceed the idle timeout")
	}
	if cfg.RateLimitMaxFailures < 1 {
		return nil, errors.New("login rate limit max failures must be at least 1")
	}

	return cfg, nil
}
