// Package config loads the service configuration from defaults, an optional
// inspector.toml file, a .env file and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Log backends.
const (
	LogBackendZap    = "zap"
	LogBackendLogrus = "logrus"
)

// Config is the complete service configuration. Keys match the environment
// variable names, lower-cased.
type Config struct {
	Environment string `mapstructure:"environment"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`

	DatabaseURL string `mapstructure:"database_url"`

	SecretKey                string `mapstructure:"secret_key"`
	Algorithm                string `mapstructure:"algorithm"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes"`
	BcryptRounds             int    `mapstructure:"bcrypt_rounds"`
	PasswordMinLength        int    `mapstructure:"password_min_length"`
	LoginRatePerMinute       int    `mapstructure:"login_rate_per_minute"`
	LoginBurst               int    `mapstructure:"login_burst"`

	CacheEnabled         bool   `mapstructure:"cache_enabled"`
	CacheTTL             int    `mapstructure:"cache_ttl"`
	CacheCleanupInterval int    `mapstructure:"cache_cleanup_interval"`
	CacheDebug           bool   `mapstructure:"cache_debug"`
	PodID                string `mapstructure:"pod_id"`
	HistoryDays          int    `mapstructure:"history_days"`

	RedisEnabled        bool   `mapstructure:"redis_enabled"`
	RedisURL            string `mapstructure:"redis_url"`
	RedisChannel        string `mapstructure:"redis_channel"`
	SerializationFormat string `mapstructure:"serialization_format"`

	LogLevel   string `mapstructure:"log_level"`
	LogBackend string `mapstructure:"log_backend"`

	AllowedOrigins string `mapstructure:"allowed_origins"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	MaxFileSize    int64  `mapstructure:"max_file_size"`

	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads the configuration. configFile names an explicit config file; when
// empty, inspector.toml is looked up in the working directory and /etc/inspector.
// A missing .env or config file is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("inspector")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/inspector")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.PodID == "" {
		cfg.PodID, _ = os.Hostname()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)

	v.SetDefault("database_url", "sqlite://inspector.db")

	v.SetDefault("secret_key", "")
	v.SetDefault("algorithm", "HS256")
	v.SetDefault("access_token_expire_minutes", 30)
	v.SetDefault("bcrypt_rounds", 12)
	v.SetDefault("password_min_length", 8)
	v.SetDefault("login_rate_per_minute", 10)
	v.SetDefault("login_burst", 5)

	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", 300)
	v.SetDefault("cache_cleanup_interval", 60)
	v.SetDefault("cache_debug", false)
	v.SetDefault("pod_id", "")
	v.SetDefault("history_days", 15)

	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("redis_channel", "inspector:cache:invalidate")
	v.SetDefault("serialization_format", "json")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_backend", LogBackendZap)

	v.SetDefault("allowed_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("enable_metrics", true)
	v.SetDefault("max_file_size", 5<<20)

	v.SetDefault("shutdown_timeout", 10)
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if c.SecretKey == "" && c.IsProduction() {
		problems = append(problems, "SECRET_KEY is required in production")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT out of range: %d", c.Port))
	}
	if c.CacheTTL <= 0 {
		problems = append(problems, "CACHE_TTL must be positive")
	}
	if c.CacheCleanupInterval < 0 {
		problems = append(problems, "CACHE_CLEANUP_INTERVAL must not be negative")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		problems = append(problems, "ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.LogBackend != LogBackendZap && c.LogBackend != LogBackendLogrus {
		problems = append(problems, fmt.Sprintf("unknown LOG_BACKEND %q", c.LogBackend))
	}
	if c.SerializationFormat != "json" && c.SerializationFormat != "msgpack" {
		problems = append(problems, fmt.Sprintf("unknown SERIALIZATION_FORMAT %q", c.SerializationFormat))
	}
	if c.RedisEnabled && c.RedisURL == "" {
		problems = append(problems, "REDIS_URL is required when REDIS_ENABLED is set")
	}
	if c.MaxFileSize <= 0 {
		problems = append(problems, "MAX_FILE_SIZE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TokenTTL is the lifetime of access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// CacheDefaultTTL is the default lifetime of cache entries.
func (c *Config) CacheDefaultTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// CleanupInterval is the period of the cache janitor.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CacheCleanupInterval) * time.Second
}

// ShutdownGrace bounds graceful shutdown.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
