package inspector

import (
	"time"

	"github.com/huykn/inspector/cache"
)

// CacheConfig configures the query cache shared by the registro read and write paths.
type CacheConfig struct {
	// PodID identifies this process on the fan-out channel.
	PodID string

	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL time.Duration

	// CleanupInterval is the period of the expired-entry janitor. Zero disables it.
	CleanupInterval time.Duration

	// RedisEnabled turns on invalidation fan-out through Redis pub/sub.
	RedisEnabled bool

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// InvalidationChannel is the Redis pub/sub channel for invalidation events.
	InvalidationChannel string

	// SerializationFormat specifies how events are encoded ("json" or "msgpack").
	SerializationFormat string

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// NewCache creates the tagged query cache.
func NewCache(cfg CacheConfig) (*cache.TaggedCache, error) {
	opts := cache.DefaultOptions()
	if cfg.PodID != "" {
		opts.PodID = cfg.PodID
	}
	if cfg.DefaultTTL != 0 {
		opts.DefaultTTL = cfg.DefaultTTL
	}
	opts.CleanupInterval = cfg.CleanupInterval
	opts.Sync = cache.SyncConfig{
		Enabled:             cfg.RedisEnabled,
		RedisAddr:           cfg.RedisAddr,
		RedisPassword:       cfg.RedisPassword,
		RedisDB:             cfg.RedisDB,
		Channel:             cfg.InvalidationChannel,
		SerializationFormat: cfg.SerializationFormat,
	}
	opts.Logger = cfg.Logger
	opts.DebugMode = cfg.DebugMode
	opts.OnError = cfg.OnError

	return cache.New(opts)
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		PodID:               "default-pod",
		DefaultTTL:          300 * time.Second,
		CleanupInterval:     time.Minute,
		RedisAddr:           "localhost:6379",
		InvalidationChannel: "cache:invalidate",
		SerializationFormat: "json",
	}
}
