package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"BLOG_ENV"`
	HTTPAddr string `mapstructure:"BLOG_HTTP_ADDR"`

	Database DBConfig       `mapstructure:",squash"`
	Session  SessionConfig  `mapstructure:",squash"`
	Content  ContentConfig  `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Driver      string `mapstructure:"BLOG_DB_DRIVER"` // "sqlite", "postgres"
	SQLitePath  string `mapstructure:"BLOG_SQLITE_PATH"`
	PostgresDSN string `mapstructure:"BLOG_POSTGRES_DSN"`
}

type SessionConfig struct {
	Secret string `mapstructure:"BLOG_SESSION_SECRET"`
}

type ContentConfig struct {
	PageSize  int    `mapstructure:"BLOG_PAGE_SIZE"`
	MediaRoot string `mapstructure:"BLOG_MEDIA_ROOT"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"BLOG_CACHE_BACKEND"` // "memory", "redis"
	RedisAddr string        `mapstructure:"BLOG_REDIS_ADDR"`
	IndexTTL  time.Duration `mapstructure:"BLOG_INDEX_CACHE_TTL"`
}

type SecurityConfig struct {
	RateLimitRPM int `mapstructure:"BLOG_RATE_LIMIT_RPM"`
}

func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("BLOG_ENV", "dev")
	v.SetDefault("BLOG_HTTP_ADDR", ":8080")
	v.SetDefault("BLOG_DB_DRIVER", "sqlite")
	v.SetDefault("BLOG_SQLITE_PATH", "privateblog.db")
	v.SetDefault("BLOG_POSTGRES_DSN", "")
	v.SetDefault("BLOG_SESSION_SECRET", "")
	v.SetDefault("BLOG_PAGE_SIZE", 10)
	v.SetDefault("BLOG_MEDIA_ROOT", "media")
	v.SetDefault("BLOG_CACHE_BACKEND", "memory")
	v.SetDefault("BLOG_REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("BLOG_INDEX_CACHE_TTL", "5s")
	v.SetDefault("BLOG_RATE_LIMIT_RPM", 120)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("BLOG_SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("BLOG_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid BLOG_DB_DRIVER %q (must be sqlite or postgres)", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid BLOG_CACHE_BACKEND %q (must be memory or redis)", c.Cache.Backend)
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("BLOG_SESSION_SECRET is required")
	}
	if c.Content.PageSize <= 0 {
		return fmt.Errorf("BLOG_PAGE_SIZE must be positive, got %d", c.Content.PageSize)
	}
	if c.Cache.IndexTTL <= 0 {
		return fmt.Errorf("BLOG_INDEX_CACHE_TTL must be positive, got %s", c.Cache.IndexTTL)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
