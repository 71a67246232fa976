package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "sqlite://inspector.db", cfg.DatabaseURL)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL())
	assert.Equal(t, 300*time.Second, cfg.CacheDefaultTTL())
	assert.Equal(t, time.Minute, cfg.CleanupInterval())
	assert.True(t, cfg.CacheEnabled)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, 12, cfg.BcryptRounds)
	assert.Equal(t, 8, cfg.PasswordMinLength)
	assert.Equal(t, LogBackendZap, cfg.LogBackend)
	assert.Equal(t, int64(5<<20), cfg.MaxFileSize)
	assert.NotEmpty(t, cfg.PodID)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Origins())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CACHE_TTL", "60")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("LOG_BACKEND", "logrus")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, time.Minute, cfg.CacheDefaultTTL())
	assert.False(t, cfg.CacheEnabled)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, LogBackendLogrus, cfg.LogBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.toml")
	content := `
port = 8100
database_url = "postgres://inspector:secret@db:5432/inspector"
cache_ttl = 120
pod_id = "pod-a"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// The environment wins over the file.
	t.Setenv("CACHE_TTL", "30")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8100, cfg.Port)
	assert.Equal(t, "postgres://inspector:secret@db:5432/inspector", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.CacheDefaultTTL())
	assert.Equal(t, "pod-a", cfg.PodID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment:              EnvDevelopment,
			Port:                     8000,
			AccessTokenExpireMinutes: 30,
			CacheTTL:                 300,
			LogBackend:               LogBackendZap,
			SerializationFormat:      "json",
			MaxFileSize:              1,
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"production without secret", func(c *Config) { c.Environment = EnvProduction }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }},
		{"negative cleanup", func(c *Config) { c.CacheCleanupInterval = -1 }},
		{"unknown backend", func(c *Config) { c.LogBackend = "stdout" }},
		{"unknown format", func(c *Config) { c.SerializationFormat = "xml" }},
		{"redis without url", func(c *Config) { c.RedisEnabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}

	c := base()
	c.Environment = EnvProduction
	c.SecretKey = "s3cret"
	assert.NoError(t, c.Validate())
}
