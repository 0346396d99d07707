package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/repository"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Storage      repository.Config
	Links        LinksConfig
	Reachability ReachabilityConfig
	Events       EventsConfig
	RateLimit    RateLimitConfig
	App          AppConfig
	Log          logger.Config
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LinksConfig holds the lifecycle policy of short links
type LinksConfig struct {
	BaseURL       string
	MaxLifetime   time.Duration
	VisitFloor    int
	SweepInterval time.Duration // 0 disables the background sweep
}

// ReachabilityConfig controls destination probing
type ReachabilityConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration // 0 disables caching
}

// EventsConfig controls publishing of eviction notices to Redis
type EventsConfig struct {
	Enabled bool
	Channel string
}

// RateLimitConfig holds per-client rate limiting settings
type RateLimitConfig struct {
	Enabled  bool
	Rate     int
	Burst    int
	Interval time.Duration
	Cleanup  time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment string // "development", "production", "testing"
}

// legacyKeys maps current keys to the property names of older config files.
// The current name wins when it is set in the environment.
var legacyKeys = map[string]string{
	"LINK_MAX_LIFETIME": "max_expiry_duration",
	"LINK_VISIT_FLOOR":  "default_visit_floor",
}

// Load reads configuration from a .env file, an optional CONFIG_FILE and
// environment variables, in increasing order of precedence
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	for key, legacy := range legacyKeys {
		if _, inEnv := os.LookupEnv(key); !inEnv && v.IsSet(legacy) {
			v.Set(key, v.Get(legacy))
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Storage: repository.Config{
			Driver:        strings.ToLower(v.GetString("STORAGE_DRIVER")),
			Path:          v.GetString("STORAGE_PATH"),
			DSN:           v.GetString("DATABASE_URL"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			RedisKey:      v.GetString("REDIS_KEY"),
		},
		Links: LinksConfig{
			BaseURL:       v.GetString("BASE_URL"),
			MaxLifetime:   v.GetDuration("LINK_MAX_LIFETIME"),
			VisitFloor:    v.GetInt("LINK_VISIT_FLOOR"),
			SweepInterval: v.GetDuration("SWEEP_INTERVAL"),
		},
		Reachability: ReachabilityConfig{
			Timeout:  v.GetDuration("REACHABILITY_TIMEOUT"),
			CacheTTL: v.GetDuration("REACHABILITY_CACHE_TTL"),
		},
		Events: EventsConfig{
			Enabled: v.GetBool("EVENTS_ENABLED"),
			Channel: v.GetString("EVENTS_CHANNEL"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			Rate:     v.GetInt("RATE_LIMIT_RATE"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			Interval: v.GetDuration("RATE_LIMIT_INTERVAL"),
			Cleanup:  v.GetDuration("RATE_LIMIT_CLEANUP"),
		},
		App: AppConfig{
			Environment: v.GetString("ENVIRONMENT"),
		},
		Log: logger.Config{
			Level:       strings.ToLower(v.GetString("LOG_LEVEL")),
			Format:      strings.ToLower(v.GetString("LOG_FORMAT")),
			Environment: v.GetString("ENVIRONMENT"),
			File:        v.GetString("LOG_FILE"),
			MaxSizeMB:   v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups:  v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays:  v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}

	// Set default BaseURL if not provided
	if cfg.Links.BaseURL == "" {
		cfg.Links.BaseURL = fmt.Sprintf("http://localhost:%s/", cfg.Server.Port)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("STORAGE_DRIVER", "file")
	v.SetDefault("STORAGE_PATH", repository.DefaultFilePath)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY", repository.DefaultRedisKey)

	v.SetDefault("LINK_MAX_LIFETIME", 24*time.Hour)
	v.SetDefault("LINK_VISIT_FLOOR", 5)
	v.SetDefault("SWEEP_INTERVAL", time.Minute)

	v.SetDefault("REACHABILITY_TIMEOUT", 5*time.Second)
	v.SetDefault("REACHABILITY_CACHE_TTL", 5*time.Minute)

	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("EVENTS_CHANNEL", "shortlinks:evicted")

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RATE", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_INTERVAL", time.Second)
	v.SetDefault("RATE_LIMIT_CLEANUP", 5*time.Minute)

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate port
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	// Validate storage
	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path cannot be empty for driver %s", c.Storage.Driver)
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be file, sqlite, postgres or redis)", c.Storage.Driver)
	}

	// Validate link policy
	if c.Links.MaxLifetime <= 0 {
		return fmt.Errorf("invalid max lifetime: %s (must be positive)", c.Links.MaxLifetime)
	}
	if c.Links.VisitFloor < 1 {
		return fmt.Errorf("invalid visit floor: %d (must be at least 1)", c.Links.VisitFloor)
	}
	if c.Links.SweepInterval < 0 {
		return fmt.Errorf("invalid sweep interval: %s", c.Links.SweepInterval)
	}

	if c.Events.Enabled && c.Storage.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when events are enabled")
	}

	// Validate environment
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}
	// Validate log level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
