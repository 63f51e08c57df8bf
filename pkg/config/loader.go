package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	return LoadFor("", "")
}

// LoadFor loads the .env files once, then reads path for env. An empty env
// falls back to APP_ENV and then development; an empty path to ./configs/<env>.yaml.
func LoadFor(env, path string) (*Config, *viper.Viper, error) {
	// env files are optional
	_ = godotenv.Load(".env.local", ".env")

	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	if env == "" {
		env = "development"
	}
	if path == "" {
		path = fmt.Sprintf("./configs/%s.yaml", env)
	}

	return LoadFile(env, path)
}

// LoadFile reads the YAML file at path, applies environment overrides and validates the result.
func LoadFile(env, path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks field constraints plus the cross-section requirements.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateRedisRequirement, Config{})

	return validate.Struct(cfg)
}

func validateRedisRequirement(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.UsesRedis() && cfg.Redis.Addr == "" {
		sl.ReportError(cfg.Redis.Addr, "Redis.Addr", "Addr", "required_for_driver", "")
	}
}

// ErrNoConfigFile is returned by Watch when the viper instance was not loaded from a file.
var ErrNoConfigFile = errors.New("config was not loaded from a file")

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.session_secret", "")
	v.SetDefault("http.secure_cookies", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.widget_ttl", 30*time.Minute)
	v.SetDefault("storage.cleanup_interval", time.Minute)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("signup.driver", "channel")
	v.SetDefault("signup.queue", "signup")
	v.SetDefault("signup.concurrency", 4)
	v.SetDefault("signup.result_ttl", 15*time.Minute)
	v.SetDefault("signup.max_retry", 3)
	v.SetDefault("signup.hash_cost", 10)

	v.SetDefault("rate_limit.global.limit", 120)
	v.SetDefault("rate_limit.global.window", time.Minute)
	v.SetDefault("rate_limit.submit.limit", 5)
	v.SetDefault("rate_limit.submit.window", time.Minute)
	v.SetDefault("rate_limit.edit.limit", 600)
	v.SetDefault("rate_limit.edit.window", time.Minute)

	v.SetDefault("widget.sign_in_url", "/customer/account/loginPost")
	v.SetDefault("widget.reset_password_url", "/customer/account/forgotpasswordpost")
	v.SetDefault("widget.account_url", "/my-account/dashboard")
	v.SetDefault("widget.orders_url", "/my-account/my-orders")
	v.SetDefault("widget.poll_interval", time.Second)
}
