package cache

import (
	"bytes"
	"testing"
)

func TestKeyDistinguishesInteractiveFlag(t *testing.T) {
	if Key("abc", true) == Key("abc", false) {
		t.Fatal("expected interactive and non-interactive keys to differ for the same hash")
	}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(0, nil)
	if _, ok := c.Get(Key("abc", false)); ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestPutThenGetHits(t *testing.T) {
	c := New(0, nil)
	key := Key("abc", false)
	c.Put(key, []byte("<div>hi</div>"))

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if !bytes.Equal(got, []byte("<div>hi</div>")) {
		t.Fatalf("unexpected cached bytes: %q", got)
	}
}

func TestInvalidateDropsBothInteractiveVariants(t *testing.T) {
	c := New(0, nil)
	c.Put(Key("abc", true), []byte("interactive"))
	c.Put(Key("abc", false), []byte("static"))

	c.Invalidate("abc")

	if _, ok := c.Get(Key("abc", true)); ok {
		t.Fatal("expected interactive variant to be invalidated")
	}
	if _, ok := c.Get(Key("abc", false)); ok {
		t.Fatal("expected static variant to be invalidated")
	}
}

func TestPutEvictsLeastRecentlyUsedWhenOverCapacity(t *testing.T) {
	c := New(10, nil) // 10 bytes total
	c.Put("a", []byte("12345")) // 5 bytes
	c.Put("b", []byte("12345")) // 5 bytes, now at capacity

	// Touch "a" so "b" becomes the least-recently-used entry.
	c.Get("a")

	c.Put("c", []byte("12345")) // forces an eviction

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted as the least-recently-used entry")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive since it was touched more recently")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected the newly inserted 'c' to be present")
	}
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	c := New(0, nil)
	c.Put("a", []byte("x"))
	c.Get("a")        // hit
	c.Get("missing")  // miss

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Fatalf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.TotalEntries != 1 {
		t.Fatalf("expected 1 entry, got %d", stats.TotalEntries)
	}
}

func TestNewDefaultsMaxSizeWhenNonPositive(t *testing.T) {
	c := New(-1, nil)
	if c.maxSize != DefaultMaxSize {
		t.Fatalf("expected maxSize to default to %d, got %d", DefaultMaxSize, c.maxSize)
	}
}
