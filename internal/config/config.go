package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"threadx/internal/logger"
)

// Storage backends selectable through KV_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

const defaultJWTSecret = "threadx-dev-secret-change-me"

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogPretty  bool   `mapstructure:"LOG_PRETTY"`

	KVBackend   string `mapstructure:"KV_BACKEND"`
	KVNamespace string `mapstructure:"KV_NAMESPACE"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	BadgerPath  string `mapstructure:"BADGER_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	SessionTokenMaxAge int    `mapstructure:"SESSION_TOKEN_MAX_AGE"`

	ChangeStreamEnabled bool `mapstructure:"CHANGE_STREAM_ENABLED"`
	WorkerCount         int  `mapstructure:"WORKER_COUNT"`
	// InstanceID names this process on the change stream.
	InstanceID string `mapstructure:"INSTANCE_ID"`

	R2AccountID       string `mapstructure:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `mapstructure:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `mapstructure:"R2_BUCKET_NAME"`
	R2PublicURL       string `mapstructure:"R2_PUBLIC_URL"`

	DefaultAvatarURL string `mapstructure:"DEFAULT_AVATAR_URL"`
}

func LoadConfig() (*Config, error) {
	log := logger.New("Config")
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, relying on environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.KVBackend = strings.ToLower(strings.TrimSpace(cfg.KVBackend))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Warn().Msg("JWT_SECRET is the development default")
	}
	return &cfg, nil
}

// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	v.SetDefault("KV_BACKEND", BackendMemory)
	v.SetDefault("KV_NAMESPACE", "")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("BADGER_PATH", "./data/badger")
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("SESSION_TOKEN_MAX_AGE", 7*24*3600)

	v.SetDefault("CHANGE_STREAM_ENABLED", false)
	v.SetDefault("WORKER_COUNT", 2)
	v.SetDefault("INSTANCE_ID", defaultInstanceID())

	v.SetDefault("R2_ACCOUNT_ID", "")
	v.SetDefault("R2_ACCESS_KEY_ID", "")
	v.SetDefault("R2_SECRET_ACCESS_KEY", "")
	v.SetDefault("R2_BUCKET_NAME", "")
	v.SetDefault("R2_PUBLIC_URL", "")

	v.SetDefault("DEFAULT_AVATAR_URL", "https://ui-avatars.com/api/?background=FF6B6B&color=fff&name=")
}

// Validate checks the combination of settings before anything is opened.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionTokenMaxAge <= 0 {
		return errors.New("SESSION_TOKEN_MAX_AGE must be positive")
	}

	switch c.KVBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	case BackendBadger:
		if c.BadgerPath == "" {
			return errors.New("BADGER_PATH is required for the badger backend")
		}
	case BackendSQLite, BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.KVBackend)
		}
	default:
		return fmt.Errorf("unknown KV_BACKEND %q", c.KVBackend)
	}

	if c.ChangeStreamEnabled && c.RedisURL == "" {
		return errors.New("REDIS_URL is required when CHANGE_STREAM_ENABLED is set")
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.ChangeStreamEnabled && c.InstanceID == "" {
		return errors.New("INSTANCE_ID is required when CHANGE_STREAM_ENABLED is set")
	}
	if c.IsProduction() && (c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32) {
		return errors.New("JWT_SECRET must be changed and at least 32 characters in production")
	}
	return nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "threadx"
	}
	return host
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// MediaConfigured reports whether avatar uploads can go to object storage.
func (c *Config) MediaConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}
