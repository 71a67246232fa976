package service

import (
	"context"
	"time"

	"github.com/huykn/inspector/cache"
)

// registroWriteTags are cleared by every committed registro write.
var registroWriteTags = []string{cache.TagRegistros, cache.TagEstadisticas, cache.TagHistorial}

// Invalidator clears the cache tags affected by committed writes.
// It never fails a write: cache and fan-out problems are logged.
type Invalidator struct {
	cache   cache.Cache
	logger  cache.Logger
	timeout time.Duration
}

// NewInvalidator creates an Invalidator over c. A nil logger discards output.
func NewInvalidator(c cache.Cache, logger cache.Logger) *Invalidator {
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}
	return &Invalidator{cache: c, logger: logger, timeout: 5 * time.Second}
}

// RegistrosChanged invalidates listings, statistics, history and the per-record
// entries of ids. Call it after the write has committed.
func (i *Invalidator) RegistrosChanged(ctx context.Context, ids ...int64) int {
	tags := make([]string, 0, len(registroWriteTags)+len(ids))
	tags = append(tags, registroWriteTags...)
	for _, id := range ids {
		tags = append(tags, cache.RegistroTag(id))
	}
	return i.InvalidateTags(ctx, tags...)
}

// InvalidateTags removes every entry under tags and returns how many were removed.
func (i *Invalidator) InvalidateTags(ctx context.Context, tags ...string) (removed int) {
	// The request may already be cancelled; fan-out still gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("cache invalidation failed", "tags", tags, "panic", p)
		}
	}()

	for _, tag := range tags {
		removed += i.cache.InvalidateByTag(ctx, tag)
	}
	i.logger.Debug("cache invalidated", "tags", tags, "removed", removed)
	return removed
}
