package cache

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := newFakeClock()
	ms := NewMemoryStore()
	ms.now = clock.Now
	return ms, clock
}

func TestMemoryStoreSetGet(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("reg:1", map[string]int{"id": 1}, 300*time.Second, []string{"registros"})

	value, found := ms.Get("reg:1")
	if !found {
		t.Fatal("Expected to find reg:1")
	}
	if value.(map[string]int)["id"] != 1 {
		t.Fatalf("Unexpected value: %v", value)
	}

	if _, found := ms.Get("missing"); found {
		t.Fatal("Expected missing key to be absent")
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ms, clock := newTestStore()

	ms.Set("k", "v", time.Second, nil)
	if ms.Stats().Size != 1 {
		t.Fatalf("Expected size 1, got %d", ms.Stats().Size)
	}

	clock.Advance(999 * time.Millisecond)
	if _, found := ms.Get("k"); !found {
		t.Fatal("Entry should still be live before its TTL")
	}

	clock.Advance(time.Millisecond)
	if _, found := ms.Get("k"); found {
		t.Fatal("Entry should be expired at now == expiresAt")
	}

	stats := ms.Stats()
	if stats.Size != 0 {
		t.Fatalf("Expired entry should be removed, size=%d", stats.Size)
	}
	if stats.Expired != 1 {
		t.Fatalf("Expected 1 expired, got %d", stats.Expired)
	}
}

func TestMemoryStoreExpiryDropsTags(t *testing.T) {
	ms, clock := newTestStore()

	ms.Set("k", "v", time.Second, []string{"registros"})
	clock.Advance(2 * time.Second)
	ms.Get("k")

	if n := ms.Stats().TagCount; n != 0 {
		t.Fatalf("Expected empty tag index, got %d tags", n)
	}
}

func TestMemoryStoreOverwriteRetags(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("k", 1, time.Minute, []string{"registros"})
	ms.Set("k", 2, time.Minute, []string{"historial"})

	if keys := ms.Tags("registros"); len(keys) != 0 {
		t.Fatalf("Old tag should be dropped, got %v", keys)
	}
	if keys := ms.Tags("historial"); len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("Expected k under historial, got %v", keys)
	}
	if n := ms.InvalidateByTag("registros"); n != 0 {
		t.Fatalf("Expected 0 removed by stale tag, got %d", n)
	}
	if v, _ := ms.Get("k"); v != 2 {
		t.Fatalf("Expected overwritten value 2, got %v", v)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("k", "v", time.Minute, []string{"registros"})
	if !ms.Delete("k") {
		t.Fatal("Delete should report an existing key")
	}
	if ms.Delete("k") {
		t.Fatal("Delete should report a missing key")
	}
	if ms.Stats().TagCount != 0 {
		t.Fatal("Deleting the last key of a tag should drop the tag")
	}
	if ms.Stats().Deletes != 1 {
		t.Fatalf("Expected 1 delete, got %d", ms.Stats().Deletes)
	}
}

func TestMemoryStoreTagScenario(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("reg:1", map[string]int{"id": 1}, 300*time.Second, []string{"registros"})
	if _, found := ms.Get("reg:1"); !found {
		t.Fatal("Expected reg:1 before invalidation")
	}
	if n := ms.InvalidateByTag("registros"); n != 1 {
		t.Fatalf("Expected 1 removed, got %d", n)
	}
	if _, found := ms.Get("reg:1"); found {
		t.Fatal("reg:1 should be gone after invalidation")
	}
}

func TestMemoryStoreTagInvalidationScope(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("total:a", 1, time.Minute, []string{"estadisticas"})
	ms.Set("total:b", 2, time.Minute, []string{"estadisticas", "registros"})
	ms.Set("hist:x", 3, time.Minute, []string{"historial"})

	if n := ms.InvalidateByTag("estadisticas"); n != 2 {
		t.Fatalf("Expected 2 removed, got %d", n)
	}
	if _, found := ms.Get("hist:x"); !found {
		t.Fatal("historial entry should survive")
	}
	// total:b was also under registros; that tag must not keep a dangling key.
	if keys := ms.Tags("registros"); len(keys) != 0 {
		t.Fatalf("Expected registros tag to be empty, got %v", keys)
	}
	if n := ms.InvalidateByTag("nope"); n != 0 {
		t.Fatalf("Unknown tag should remove nothing, got %d", n)
	}
}

func TestMemoryStorePatternInvalidation(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("registro_individual:id=5", 5, time.Minute, nil)
	ms.Set("registro_individual:id=6", 6, time.Minute, nil)
	ms.Set("historial:x", "x", time.Minute, nil)

	if n := ms.InvalidateByPattern("registro_individual"); n != 2 {
		t.Fatalf("Expected 2 removed, got %d", n)
	}
	if _, found := ms.Get("historial:x"); !found {
		t.Fatal("historial:x should survive")
	}
	if n := ms.InvalidateByPattern(""); n != 0 {
		t.Fatalf("Empty pattern should match nothing, got %d", n)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("a", 1, time.Minute, []string{"registros"})
	ms.Set("b", 2, time.Minute, []string{"historial"})

	if n := ms.Clear(); n != 2 {
		t.Fatalf("Expected 2 cleared, got %d", n)
	}
	stats := ms.Stats()
	if stats.Size != 0 || stats.TagCount != 0 {
		t.Fatalf("Expected empty store, got size=%d tags=%d", stats.Size, stats.TagCount)
	}
	if _, found := ms.Get("a"); found {
		t.Fatal("a should be absent after clear")
	}
	if stats.Sets != 2 {
		t.Fatalf("Clear should keep counters, sets=%d", stats.Sets)
	}
}

func TestMemoryStoreHitMissCounting(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("a", 1, time.Minute, nil)
	ms.Get("a")
	ms.Get("b")

	stats := ms.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Fatalf("Expected hits=1 misses=1 sets=1, got %+v", stats)
	}
	if stats.TotalRequests != 2 || stats.HitRate != 50 {
		t.Fatalf("Expected 2 requests at 50%%, got %d at %v", stats.TotalRequests, stats.HitRate)
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	ms, clock := newTestStore()

	ms.Set("short", 1, time.Second, []string{"registros"})
	ms.Set("long", 2, time.Hour, []string{"registros"})
	clock.Advance(time.Minute)

	if n := ms.CleanupExpired(); n != 1 {
		t.Fatalf("Expected 1 expired, got %d", n)
	}
	keys := ms.Tags("registros")
	sort.Strings(keys)
	if len(keys) != 1 || keys[0] != "long" {
		t.Fatalf("Expected only long under registros, got %v", keys)
	}
}

func TestMemoryStoreDedupesTags(t *testing.T) {
	ms, _ := newTestStore()

	ms.Set("k", 1, time.Minute, []string{"registros", "registros", ""})
	if ms.Stats().TagCount != 1 {
		t.Fatalf("Expected 1 tag, got %d", ms.Stats().TagCount)
	}
	if n := ms.InvalidateByTag("registros"); n != 1 {
		t.Fatalf("Expected 1 removed, got %d", n)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ms, clock := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%20)
				ms.Set(key, j, time.Second, []string{"registros"})
				ms.Get(key)
				if j%50 == 0 {
					ms.InvalidateByTag("registros")
					clock.Advance(time.Second)
					ms.CleanupExpired()
				}
			}
		}(i)
	}
	wg.Wait()

	// Every key still indexed under a tag must exist in the store.
	for _, key := range ms.Tags("registros") {
		ms.mu.Lock()
		_, ok := ms.entries[key]
		ms.mu.Unlock()
		if !ok {
			t.Fatalf("Tag index references missing key %s", key)
		}
	}
}

func TestMemoryStoreSetIfFresh(t *testing.T) {
	tags := []string{TagRegistros, TagEstadisticas}
	invalidations := []struct {
		name  string
		run   func(ms *MemoryStore)
		stale bool
	}{
		{"none", func(ms *MemoryStore) {}, false},
		{"own tag with nothing stored", func(ms *MemoryStore) { ms.InvalidateByTag(TagEstadisticas) }, true},
		{"unrelated tag", func(ms *MemoryStore) { ms.InvalidateByTag(TagHistorial) }, false},
		{"pattern", func(ms *MemoryStore) { ms.InvalidateByPattern("zzz") }, true},
		{"delete", func(ms *MemoryStore) { ms.Delete("k") }, true},
		{"clear", func(ms *MemoryStore) { ms.Clear() }, true},
		{"set elsewhere", func(ms *MemoryStore) { ms.Set("other", 1, time.Minute, tags) }, false},
	}

	for _, tt := range invalidations {
		ms, _ := newTestStore()
		gen := ms.Generation(tags)
		tt.run(ms)

		stored := ms.SetIfFresh("k", "v", time.Minute, tags, gen)
		if stored == tt.stale {
			t.Fatalf("%s: expected stored=%v, got %v", tt.name, !tt.stale, stored)
		}
		if _, found := ms.Get("k"); found != stored {
			t.Fatalf("%s: Get found=%v after SetIfFresh stored=%v", tt.name, found, stored)
		}
		if tt.stale && ms.Stats().StaleSets != 1 {
			t.Fatalf("%s: expected 1 stale set, got %d", tt.name, ms.Stats().StaleSets)
		}
	}
}
