package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("empty cache must miss")
	}

	c.Set("a", "one")
	got, ok := c.Get("a")
	if !ok || got != "one" {
		t.Fatalf("got %q, %v", got, ok)
	}

	c.Set("a", "two")
	got, _ = c.Get("a")
	if got != "two" {
		t.Fatalf("overwrite: got %q", got)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the eviction candidate
	c.Get("k0")
	c.Set("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Fatalf("k1 should have been evicted")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("%s should survive", key)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("size = %d, want 3", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry must miss")
	}
	if removed := c.CleanExpired(); removed != 1 {
		// Get already dropped "a", the sweep catches "b"
		t.Fatalf("CleanExpired = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")

	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted entry must miss")
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](8, time.Minute)
	c.Set("u1:schedule", 1)
	c.Set("u1:detailed", 2)
	c.Set("u2:schedule", 3)

	if removed := c.DeletePrefix("u1:"); removed != 2 {
		t.Fatalf("DeletePrefix = %d, want 2", removed)
	}
	if _, ok := c.Get("u1:schedule"); ok {
		t.Fatalf("u1 entries must be gone")
	}
	if _, ok := c.Get("u2:schedule"); !ok {
		t.Fatalf("u2 entry must survive")
	}
}
