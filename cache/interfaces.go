package cache

import (
	"context"
	"time"

	"github.com/huykn/inspector/types"
)

// Logger defines the interface for logging in the cache.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// TagDeriver supplies tags for an entry stored without explicit ones.
type TagDeriver func(key string) []string

// Cache defines the tagged TTL cache consumed by query and write paths.
type Cache interface {
	// Get returns the value stored at key if it has not expired.
	Get(key string) (any, bool)

	// Set stores value under key for ttl and registers it under tags.
	// A non-positive ttl uses the configured default.
	Set(key string, value any, ttl time.Duration, tags ...string)

	// Generation returns a token that changes whenever an invalidation that
	// could affect entries under tags runs. Take it before loading a value.
	Generation(tags ...string) uint64

	// SetIfFresh stores like Set unless an invalidation affecting tags ran
	// since gen was taken. It reports whether the value was stored.
	SetIfFresh(key string, value any, ttl time.Duration, gen uint64, tags ...string) bool

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) bool

	// InvalidateByTag removes every entry registered under tag.
	InvalidateByTag(ctx context.Context, tag string) int

	// InvalidateByPattern removes every entry whose key contains pattern.
	InvalidateByPattern(ctx context.Context, pattern string) int

	// Clear removes every entry and tag.
	Clear(ctx context.Context)

	// CleanupExpired removes every expired entry.
	CleanupExpired() int

	// Stats returns cache statistics.
	Stats() Stats

	// Close stops background work and releases resources.
	Close() error
}

// Synchronizer defines the interface for broadcasting invalidations across instances.
type Synchronizer interface {
	// Subscribe starts listening for invalidation events.
	Subscribe(ctx context.Context) error

	// Publish publishes an invalidation event.
	Publish(ctx context.Context, event types.InvalidationEvent) error

	// OnInvalidate registers a callback for invalidation events.
	OnInvalidate(callback func(event types.InvalidationEvent))

	// Close closes the synchronizer.
	Close() error
}

// InvalidationEvent is an alias for types.InvalidationEvent.
type InvalidationEvent = types.InvalidationEvent

// Action is an alias for types.Action.
type Action = types.Action

// Action constants for invalidation events.
const (
	ActionKey     = types.InvalidateKey
	ActionTag     = types.InvalidateTag
	ActionPattern = types.InvalidatePattern
	ActionClear   = types.Clear
)

// Stats represents cache statistics.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Deletes       int64   `json:"deletes"`
	Invalidations int64   `json:"invalidations"`
	Expired       int64   `json:"expired"`
	StaleSets     int64   `json:"stale_sets"` // loads dropped by SetIfFresh
	Size          int64   `json:"cache_size"`
	TagCount      int64   `json:"tag_count"`
	TotalRequests int64   `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
}
