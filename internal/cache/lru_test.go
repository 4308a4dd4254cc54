package cache

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func TestLRUCacheGetSetDelete(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}

	// a was touched, so b is the eviction candidate
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be deleted")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	now = now.Add(2 * time.Minute)
	c.Set("z", 3)

	if _, ok := c.Get("x"); ok {
		t.Fatal("expected x to be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry (y), got %d", removed)
	}
	if v, ok := c.Get("z"); !ok || v != 3 {
		t.Fatalf("expected z to survive, got %d %v", v, ok)
	}
}

func TestJanitorSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("x", 1)
	now = now.Add(time.Hour)

	var reported int
	j := NewJanitor(time.Hour, func(n int) { reported = n })
	j.Register(c)
	if got := j.Sweep(); got != 1 || reported != 1 {
		t.Fatalf("expected one removal reported, got %d/%d", got, reported)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func BenchmarkLRUCacheSetGet(b *testing.B) {
	c := NewLRUCache[int](128, time.Minute)
	keys := make([]string, 256)
	for i := range keys {
		keys[i] = "key-" + strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := keys[i%len(keys)]
		c.Set(k, i)
		c.Get(k)
	}
}
