package inspector

import "github.com/huykn/inspector/cache"

// Cache is an alias for cache.Cache interface.
type Cache = cache.Cache

// Stats is an alias for cache.Stats.
type Stats = cache.Stats

// Logger is an alias for cache.Logger.
type Logger = cache.Logger
