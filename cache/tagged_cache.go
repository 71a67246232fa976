package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huykn/inspector/storage"
	cachesync "github.com/huykn/inspector/sync"
	"github.com/redis/go-redis/v9"
)

// TaggedCache is an in-process TTL cache with tag and pattern invalidation.
// When fan-out is enabled, invalidations are broadcast to peer instances.
type TaggedCache struct {
	store        *MemoryStore
	synchronizer Synchronizer
	client       *redis.Client
	logger       Logger
	options      Options
	closed       int32
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// New creates a new TaggedCache instance.
func New(opts Options) (*TaggedCache, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Set defaults for optional fields
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}
	if opts.ContextTimeout <= 0 {
		opts.ContextTimeout = 5 * time.Second
	}

	store := NewMemoryStore()
	if opts.Clock != nil {
		store.now = opts.Clock
	}

	tc := &TaggedCache{
		store:   store,
		logger:  opts.Logger,
		options: opts,
		stopCh:  make(chan struct{}),
	}

	if opts.Synchronizer != nil || opts.Sync.Enabled {
		if err := tc.startSync(); err != nil {
			return nil, err
		}
	}

	if opts.CleanupInterval > 0 {
		tc.wg.Add(1)
		go tc.janitor(opts.CleanupInterval)
	}

	return tc, nil
}

// startSync connects the synchronizer and subscribes to peer invalidations.
func (tc *TaggedCache) startSync() error {
	ctx, cancel := context.WithTimeout(context.Background(), tc.options.ContextTimeout)
	defer cancel()

	synchronizer := tc.options.Synchronizer
	if synchronizer == nil {
		client, err := storage.NewRedisClient(ctx, storage.RedisConfig{
			Addr:           tc.options.Sync.RedisAddr,
			Password:       tc.options.Sync.RedisPassword,
			DB:             tc.options.Sync.RedisDB,
			ConnectTimeout: tc.options.ContextTimeout,
		})
		if err != nil {
			return err
		}
		serializer, err := storage.GetSerializer(tc.options.Sync.SerializationFormat)
		if err != nil {
			_ = client.Close()
			return err
		}
		ps := cachesync.NewPubSubSynchronizer(client, tc.options.Sync.Channel, tc.options.PodID, serializer)
		ps.OnError(tc.reportError)
		synchronizer = ps
		tc.client = client
	}

	synchronizer.OnInvalidate(tc.handleInvalidation)
	if err := synchronizer.Subscribe(ctx); err != nil {
		_ = synchronizer.Close()
		if tc.client != nil {
			_ = tc.client.Close()
		}
		return err
	}
	tc.synchronizer = synchronizer
	return nil
}

// Get retrieves a value from the cache.
func (tc *TaggedCache) Get(key string) (any, bool) {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return nil, false
	}

	value, found := tc.store.Get(key)
	if tc.options.DebugMode {
		tc.logger.Debug("Get", "key", key, "hit", found)
	}
	return value, found
}

// Set stores a value with the given ttl and tags.
// With no tags, the configured TagDeriver, if any, supplies them.
func (tc *TaggedCache) Set(key string, value any, ttl time.Duration, tags ...string) {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return
	}

	if ttl <= 0 {
		ttl = tc.options.DefaultTTL
	}
	if len(tags) == 0 && tc.options.TagDeriver != nil {
		tags = tc.options.TagDeriver(key)
	}

	tc.store.Set(key, value, ttl, tags)
	if tc.options.DebugMode {
		tc.logger.Debug("Set: stored value", "key", key, "ttl", ttl, "tags", tags)
	}
}

// Generation returns the invalidation generation for tags.
func (tc *TaggedCache) Generation(tags ...string) uint64 {
	return tc.store.Generation(tags)
}

// SetIfFresh stores a value unless an invalidation touching tags ran since gen
// was taken. Peer invalidations applied from the fan-out count as well.
func (tc *TaggedCache) SetIfFresh(key string, value any, ttl time.Duration, gen uint64, tags ...string) bool {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return false
	}

	if ttl <= 0 {
		ttl = tc.options.DefaultTTL
	}

	stored := tc.store.SetIfFresh(key, value, ttl, tags, gen)
	if tc.options.DebugMode {
		tc.logger.Debug("SetIfFresh", "key", key, "ttl", ttl, "tags", tags, "stored", stored)
	}
	return stored
}

// Delete removes a value from the cache.
func (tc *TaggedCache) Delete(ctx context.Context, key string) bool {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return false
	}

	existed := tc.store.Delete(key)
	if tc.options.DebugMode {
		tc.logger.Debug("Delete: removed key", "key", key, "existed", existed)
	}

	tc.publish(ctx, InvalidationEvent{Action: ActionKey, Target: key, Removed: boolToInt(existed)})
	return existed
}

// InvalidateByTag removes every entry registered under tag.
func (tc *TaggedCache) InvalidateByTag(ctx context.Context, tag string) int {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return 0
	}

	removed := tc.store.InvalidateByTag(tag)
	if tc.options.DebugMode {
		tc.logger.Debug("InvalidateByTag", "tag", tag, "removed", removed)
	}

	tc.publish(ctx, InvalidationEvent{Action: ActionTag, Target: tag, Removed: removed})
	return removed
}

// InvalidateByPattern removes every entry whose key contains pattern.
func (tc *TaggedCache) InvalidateByPattern(ctx context.Context, pattern string) int {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return 0
	}

	removed := tc.store.InvalidateByPattern(pattern)
	if tc.options.DebugMode {
		tc.logger.Debug("InvalidateByPattern", "pattern", pattern, "removed", removed)
	}

	if pattern != "" {
		tc.publish(ctx, InvalidationEvent{Action: ActionPattern, Target: pattern, Removed: removed})
	}
	return removed
}

// Clear removes all values from the cache.
func (tc *TaggedCache) Clear(ctx context.Context) {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return
	}

	removed := tc.store.Clear()
	if tc.options.DebugMode {
		tc.logger.Debug("Clear: cleared all entries", "removed", removed)
	}

	tc.publish(ctx, InvalidationEvent{Action: ActionClear, Removed: removed})
}

// CleanupExpired removes every expired entry.
func (tc *TaggedCache) CleanupExpired() int {
	removed := tc.store.CleanupExpired()
	if removed > 0 && tc.options.DebugMode {
		tc.logger.Debug("CleanupExpired", "removed", removed)
	}
	return removed
}

// Stats returns cache statistics.
func (tc *TaggedCache) Stats() Stats {
	return tc.store.Stats()
}

// Close stops the janitor and the synchronizer.
func (tc *TaggedCache) Close() error {
	if !atomic.CompareAndSwapInt32(&tc.closed, 0, 1) {
		return nil
	}

	close(tc.stopCh)
	tc.wg.Wait()

	var errs []error
	if tc.synchronizer != nil {
		if err := tc.synchronizer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if tc.client != nil {
		if err := tc.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// publish broadcasts an invalidation to peers. Failures are reported, never returned.
func (tc *TaggedCache) publish(ctx context.Context, event InvalidationEvent) {
	if tc.synchronizer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, tc.options.ContextTimeout)
	defer cancel()

	event.Sender = tc.options.PodID
	if err := tc.synchronizer.Publish(ctx, event); err != nil {
		tc.reportError(err)
		tc.logger.Warn("failed to publish invalidation event", "action", event.Action, "target", event.Target, "error", err)
		return
	}
	if tc.options.DebugMode {
		tc.logger.Debug("published invalidation event", "action", event.Action, "target", event.Target)
	}
}

// handleInvalidation applies an invalidation received from a peer.
func (tc *TaggedCache) handleInvalidation(event InvalidationEvent) {
	if atomic.LoadInt32(&tc.closed) != 0 {
		return
	}

	if tc.options.DebugMode {
		tc.logger.Info("Received invalidation event", "action", event.Action, "target", event.Target, "sender", event.Sender)
	}

	switch event.Action {
	case ActionKey:
		tc.store.Delete(event.Target)
	case ActionTag:
		tc.store.InvalidateByTag(event.Target)
	case ActionPattern:
		tc.store.InvalidateByPattern(event.Target)
	case ActionClear:
		tc.store.Clear()
	default:
		tc.logger.Warn("Sync: unknown action", "action", event.Action, "target", event.Target, "sender", event.Sender)
	}
}

func (tc *TaggedCache) janitor(interval time.Duration) {
	defer tc.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tc.stopCh:
			return
		case <-ticker.C:
			tc.CleanupExpired()
		}
	}
}

func (tc *TaggedCache) reportError(err error) {
	if tc.options.OnError != nil {
		tc.options.OnError(err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
