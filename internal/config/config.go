// Package config loads runtime settings from the environment
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBUser      string `envconfig:"DB_USER" default:"crm"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"crm"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`

	// Empty RedisAddr keeps the selected organization in memory only.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	SessionRestoreWait    time.Duration `envconfig:"SESSION_RESTORE_WAIT" default:"2s"`
	SessionSweepInterval  time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
	OrganizationKeyPrefix string        `envconfig:"ORGANIZATION_KEY_PREFIX" default:"crm:current_organization:"`
	MenuFile              string        `envconfig:"MENU_FILE"`

	SeedDefaults  bool   `envconfig:"SEED_DEFAULTS" default:"true"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"admin123"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be provided in production")
		}
		cfg.JWTSecret = "dev-secret-change-in-production"
	}
	return &cfg, nil
}

// IsProduction returns true when the console runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
