// Package config provides configuration loading and validation utilities.
package config

import (
	"time"

	"github.com/Proton-105/storefront-account/pkg/redis"
)

// Config holds runtime configuration for the storefront account service.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     redis.Config    `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Signup    SignupConfig    `mapstructure:"signup"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Widget    WidgetConfig    `mapstructure:"widget"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	SessionSecret   string        `mapstructure:"session_secret" validate:"required,min=16"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig selects where widget instances live between requests.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=memory redis"`
	WidgetTTL       time.Duration `mapstructure:"widget_ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

type DatabaseConfig struct {
	Driver        string `mapstructure:"driver" validate:"oneof=memory postgres"`
	DSN           string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	MaxOpenConns  int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// SignupConfig selects how signup requests reach the worker.
type SignupConfig struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=channel asynq"`
	Queue       string        `mapstructure:"queue" validate:"required"`
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1"`
	ResultTTL   time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
	MaxRetry    int           `mapstructure:"max_retry" validate:"gte=0"`
	HashCost    int           `mapstructure:"hash_cost" validate:"gte=4,lte=31"`
}

type RateLimitConfig struct {
	Whitelist []string      `mapstructure:"whitelist" validate:"dive,ip"`
	Global    RateLimitRule `mapstructure:"global"`
	Submit    RateLimitRule `mapstructure:"submit"`
	Edit      RateLimitRule `mapstructure:"edit"`
}

// RateLimitRule allows Limit requests per Window. A zero limit disables the rule.
type RateLimitRule struct {
	Limit  int           `mapstructure:"limit" validate:"gte=0"`
	Window time.Duration `mapstructure:"window" validate:"required_with=Limit"`
}

// WidgetConfig carries the storefront endpoints the widget links to.
type WidgetConfig struct {
	SignInURL        string        `mapstructure:"sign_in_url" validate:"required"`
	ResetPasswordURL string        `mapstructure:"reset_password_url" validate:"required"`
	AccountURL       string        `mapstructure:"account_url" validate:"required"`
	OrdersURL        string        `mapstructure:"orders_url" validate:"required"`
	PollInterval     time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// UsesRedis reports whether any configured component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Storage.Driver == "redis" || c.Signup.Driver == "asynq"
}
