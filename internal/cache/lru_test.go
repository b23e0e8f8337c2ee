package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	var evicted []string
	cache := NewLRUCache[string](3, time.Hour).OnEvict(func(key, _ string) {
		evicted = append(evicted, key)
	})

	// Fill beyond capacity
	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Get("key1")           // key2 becomes least recently used
	cache.Set("key4", "value4") // Should evict key2

	if _, found := cache.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should still exist", key)
		}
	}
	if len(evicted) != 1 || evicted[0] != "key2" {
		t.Errorf("evicted = %v, want [key2]", evicted)
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	clock := newClock()
	cache := NewLRUCache[string](100, time.Minute).WithClock(clock.Now)

	cache.Set("key1", "value1")
	if _, found := cache.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clock.Advance(61 * time.Second)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if cache.Size() != 0 {
		t.Errorf("expired item should be removed, size = %d", cache.Size())
	}
}

func TestLRUCacheSlidingTTL(t *testing.T) {
	clock := newClock()
	cache := NewLRUCache[string](100, time.Minute).WithClock(clock.Now)

	cache.Set("key1", "value1")
	for i := 0; i < 5; i++ {
		clock.Advance(40 * time.Second)
		if _, found := cache.Get("key1"); !found {
			t.Fatalf("key1 should be kept alive by reads (round %d)", i)
		}
	}
}

func TestLRUCacheGetOrCreate(t *testing.T) {
	clock := newClock()
	var evicted []int
	cache := NewLRUCache[int](10, time.Minute).WithClock(clock.Now).OnEvict(func(_ string, v int) {
		evicted = append(evicted, v)
	})

	calls := 0
	create := func() int {
		calls++
		return calls
	}

	if got := cache.GetOrCreate("a", create); got != 1 {
		t.Fatalf("first GetOrCreate = %d", got)
	}
	if got := cache.GetOrCreate("a", create); got != 1 || calls != 1 {
		t.Fatalf("second GetOrCreate = %d (calls %d)", got, calls)
	}

	clock.Advance(2 * time.Minute)
	if got := cache.GetOrCreate("a", create); got != 2 {
		t.Fatalf("expired GetOrCreate = %d", got)
	}
	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("expired value should be evicted, got %v", evicted)
	}
}

func TestLRUCacheGetOrCreateConcurrent(t *testing.T) {
	cache := NewLRUCache[*int](10, time.Minute)

	var wg sync.WaitGroup
	results := make([]*int, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetOrCreate("shared", func() *int { v := i; return &v })
		}(i)
	}
	wg.Wait()

	for i := range results {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different value", i)
		}
	}
}

func TestLRUCacheDeleteRunsCallback(t *testing.T) {
	var evicted []string
	cache := NewLRUCache[string](10, time.Hour).OnEvict(func(key, _ string) {
		evicted = append(evicted, key)
	})

	cache.Set("key1", "value1")
	cache.Delete("key1")
	cache.Delete("missing")

	if len(evicted) != 1 || evicted[0] != "key1" {
		t.Errorf("evicted = %v", evicted)
	}
}

// TestLRUCacheCleanExpired tests the cleanup mechanism
func TestLRUCacheCleanExpired(t *testing.T) {
	clock := newClock()
	cache := NewLRUCache[string](100, time.Minute).WithClock(clock.Now)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	clock.Advance(30 * time.Second)
	cache.Set("key3", "value3")
	clock.Advance(31 * time.Second)

	if removed := cache.CleanExpired(); removed != 2 {
		t.Errorf("Expected 2 items cleaned, got %d", removed)
	}
	if cache.Size() != 1 {
		t.Errorf("Expected 1 item left, got %d", cache.Size())
	}
}

func TestManagerCleanNowAndStop(t *testing.T) {
	clock := newClock()
	a := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)
	b := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)
	a.Set("x", "1")
	b.Set("y", 2)
	clock.Advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register("a", a)
	m.Register("b", b)
	if n := m.CleanNow(); n != 2 {
		t.Errorf("CleanNow() = %d, want 2", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

// BenchmarkLRUCache benchmarks cache performance
func BenchmarkLRUCache(b *testing.B) {
	cache := NewLRUCache[string](1000, time.Hour)

	b.ResetTimer()

	// Test mixed read/write workload
	for i := 0; i < b.N; i++ {
		key := "bench-key-" + strconv.Itoa(i%100)
		if i%10 == 0 {
			// 10% writes
			cache.Set(key, key)
		} else {
			// 90% reads
			cache.Get(key)
		}
	}
}
