package cache

import (
	"time"
)

// SyncConfig configures invalidation fan-out through Redis pub/sub.
type SyncConfig struct {
	// Enabled turns on publishing and receiving invalidation events.
	Enabled bool

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// Channel is the Redis pub/sub channel for invalidation events.
	Channel string

	// SerializationFormat specifies how events are encoded ("json" or "msgpack").
	SerializationFormat string
}

// Options configures a TaggedCache instance.
type Options struct {
	// PodID is the unique identifier for this instance.
	// Used to ignore its own invalidation events.
	PodID string

	// DefaultTTL applies to Set calls with a non-positive ttl.
	DefaultTTL time.Duration

	// CleanupInterval is the period of the expired-entry janitor.
	// Zero disables the janitor.
	CleanupInterval time.Duration

	// Sync configures invalidation fan-out. Disabled by default.
	Sync SyncConfig

	// Synchronizer overrides the Redis synchronizer built from Sync.
	Synchronizer Synchronizer

	// TagDeriver supplies tags when Set is called without any.
	// If nil, untagged entries stay untagged.
	TagDeriver TagDeriver

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout is the default timeout for fan-out operations.
	ContextTimeout time.Duration

	// OnError is called when an error occurs in background operations.
	OnError func(error)

	// Clock replaces time.Now for expiry checks. Used by tests.
	Clock func() time.Time
}

// DefaultOptions returns default cache options.
func DefaultOptions() Options {
	return Options{
		PodID:           "default-pod",
		DefaultTTL:      300 * time.Second,
		CleanupInterval: time.Minute,
		Sync:            DefaultSyncConfig(),
		ContextTimeout:  5 * time.Second,
		Logger:          nil, // Will default to no-op in New()
		DebugMode:       false,
	}
}

// DefaultSyncConfig returns default fan-out configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Enabled:             false,
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		Channel:             "cache:invalidate",
		SerializationFormat: "json",
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.PodID == "" {
		return ErrInvalidConfig
	}
	if o.DefaultTTL <= 0 {
		return ErrInvalidConfig
	}
	if o.CleanupInterval < 0 {
		return ErrInvalidConfig
	}
	if o.Sync.Enabled && o.Synchronizer == nil {
		if o.Sync.RedisAddr == "" || o.Sync.Channel == "" {
			return ErrInvalidConfig
		}
		if o.Sync.SerializationFormat != "json" && o.Sync.SerializationFormat != "msgpack" {
			return ErrInvalidConfig
		}
	}
	return nil
}

// ErrInvalidConfig is returned when options are invalid.
var ErrInvalidConfig = NewError("invalid cache configuration")

// NewError creates a new error with the given message.
func NewError(msg string) error {
	return &cacheError{msg: msg}
}

type cacheError struct {
	msg string
}

func (e *cacheError) Error() string {
	return e.msg
}
