package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[int](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned a value")
	}

	c.Set("a", 1)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Errorf("Get(a) = %d, %v", got, ok)
	}

	c.Set("a", 2)
	if got, _ := c.Get("a"); got != 2 {
		t.Errorf("overwrite: Get(a) = %d, want 2", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New[int](4, 10*time.Millisecond)
	c.Set("a", 1)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry still returned")
	}
	if c.Size() != 0 {
		t.Errorf("Size after expiry = %d, want 0", c.Size())
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[int](8, time.Minute)
	c.Set("reports:2026-03:totals", 1)
	c.Set("reports:2026-03:summary", 2)
	c.Set("reports:2026-04:totals", 3)

	if n := c.InvalidatePrefix("reports:2026-03:"); n != 2 {
		t.Errorf("InvalidatePrefix dropped %d, want 2", n)
	}
	if _, ok := c.Get("reports:2026-03:totals"); ok {
		t.Error("invalidated key still present")
	}
	if _, ok := c.Get("reports:2026-04:totals"); !ok {
		t.Error("unrelated key was dropped")
	}
}

func TestCleanExpired(t *testing.T) {
	c := New[int](8, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if n := c.cleanExpired(); n != 2 {
		t.Errorf("cleanExpired removed %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}
