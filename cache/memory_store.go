package cache

import (
	"strings"
	"sync"
	"time"
)

// entry is a stored value with its absolute expiry and tags.
type entry struct {
	value     any
	expiresAt time.Time
	tags      []string
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryStore is an in-process key/value store with TTL expiry and a tag index.
// Every method holds mu, including the expiry check and delete inside Get.
//
// Invalidations advance generation counters: one per tag for InvalidateByTag,
// and a store-wide epoch for Delete, InvalidateByPattern and Clear. A reader
// snapshots Generation before loading and stores with SetIfFresh, so a result
// computed before an invalidation is never stored after it.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	tags    map[string]map[string]struct{}
	tagGen  map[string]uint64
	epoch   uint64
	stats   Stats
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		tags:    make(map[string]map[string]struct{}),
		tagGen:  make(map[string]uint64),
		now:     time.Now,
	}
}

// Set stores value under key until now+ttl and registers key under each tag.
// Any previous entry at key loses its tag associations first.
func (ms *MemoryStore) Set(key string, value any, ttl time.Duration, tags []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.set(key, value, ttl, tags)
}

// Generation returns the invalidation generation seen by entries under tags.
// It changes whenever an invalidation that could remove such an entry runs.
func (ms *MemoryStore) Generation(tags []string) uint64 {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.generation(tags)
}

// SetIfFresh stores value like Set, but only while Generation(tags) still
// equals gen. It reports whether the value was stored.
func (ms *MemoryStore) SetIfFresh(key string, value any, ttl time.Duration, tags []string, gen uint64) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.generation(tags) != gen {
		ms.stats.StaleSets++
		return false
	}
	ms.set(key, value, ttl, tags)
	return true
}

// generation sums the epoch and the tag counters. Every counter only grows,
// so any bump changes the sum. Caller holds mu.
func (ms *MemoryStore) generation(tags []string) uint64 {
	gen := ms.epoch
	for _, tag := range tags {
		gen += ms.tagGen[tag]
	}
	return gen
}

// set stores the entry. Caller holds mu.
func (ms *MemoryStore) set(key string, value any, ttl time.Duration, tags []string) {
	if old, ok := ms.entries[key]; ok {
		ms.untag(key, old)
	}

	e := &entry{
		value:     value,
		expiresAt: ms.now().Add(ttl),
		tags:      dedupe(tags),
	}
	ms.entries[key] = e
	for _, tag := range e.tags {
		keys, ok := ms.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			ms.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	ms.stats.Sets++
}

// Get returns the value at key. An expired entry is removed and reported absent.
func (ms *MemoryStore) Get(key string) (any, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, ok := ms.entries[key]
	if !ok {
		ms.stats.Misses++
		return nil, false
	}
	if e.expired(ms.now()) {
		ms.remove(key, e)
		ms.stats.Expired++
		ms.stats.Misses++
		return nil, false
	}
	ms.stats.Hits++
	return e.value, true
}

// Delete removes key and reports whether it was present.
func (ms *MemoryStore) Delete(key string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.epoch++
	e, ok := ms.entries[key]
	if !ok {
		return false
	}
	ms.remove(key, e)
	ms.stats.Deletes++
	return true
}

// InvalidateByTag removes every entry registered under tag and returns how many.
func (ms *MemoryStore) InvalidateByTag(tag string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Bumped even with nothing stored: a load for tag may be in flight.
	ms.tagGen[tag]++
	keys, ok := ms.tags[tag]
	if !ok {
		return 0
	}
	// remove mutates ms.tags[tag]; collect first.
	victims := make([]string, 0, len(keys))
	for key := range keys {
		victims = append(victims, key)
	}
	for _, key := range victims {
		if e, ok := ms.entries[key]; ok {
			ms.remove(key, e)
		}
	}
	delete(ms.tags, tag)
	ms.stats.Invalidations += int64(len(victims))
	return len(victims)
}

// InvalidateByPattern removes every entry whose key contains pattern.
// An empty pattern matches nothing.
func (ms *MemoryStore) InvalidateByPattern(pattern string) int {
	if pattern == "" {
		return 0
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.epoch++
	removed := 0
	for key, e := range ms.entries {
		if strings.Contains(key, pattern) {
			ms.remove(key, e)
			removed++
		}
	}
	ms.stats.Invalidations += int64(removed)
	return removed
}

// Clear drops every entry and tag. Counters are kept.
func (ms *MemoryStore) Clear() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.epoch++
	n := len(ms.entries)
	ms.entries = make(map[string]*entry)
	ms.tags = make(map[string]map[string]struct{})
	return n
}

// CleanupExpired removes every expired entry and returns how many.
func (ms *MemoryStore) CleanupExpired() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, e := range ms.entries {
		if e.expired(now) {
			ms.remove(key, e)
			removed++
		}
	}
	ms.stats.Expired += int64(removed)
	return removed
}

// Stats returns a snapshot of the counters and current sizes.
func (ms *MemoryStore) Stats() Stats {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s := ms.stats
	s.Size = int64(len(ms.entries))
	s.TagCount = int64(len(ms.tags))
	s.TotalRequests = s.Hits + s.Misses
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalRequests) * 100
	}
	return s
}

// Len returns the number of stored entries, expired or not.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.entries)
}

// Tags returns the keys currently registered under tag.
func (ms *MemoryStore) Tags(tag string) []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	keys := make([]string, 0, len(ms.tags[tag]))
	for key := range ms.tags[tag] {
		keys = append(keys, key)
	}
	return keys
}

// remove deletes key and its tag associations. Caller holds mu.
func (ms *MemoryStore) remove(key string, e *entry) {
	delete(ms.entries, key)
	ms.untag(key, e)
}

// untag drops key from every tag set of e, deleting sets that become empty. Caller holds mu.
func (ms *MemoryStore) untag(key string, e *entry) {
	for _, tag := range e.tags {
		keys, ok := ms.tags[tag]
		if !ok {
			continue
		}
		delete(keys, key)
		if len(keys) == 0 {
			delete(ms.tags, tag)
		}
	}
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
