package index

import (
	"testing"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

func rec(hash string, lastSeen time.Time) *Record {
	return &Record{Hash: hash, FirstSeen: lastSeen, LastSeen: lastSeen, Kind: model.KindText}
}

func TestLoadOrdersByLastSeenDescending(t *testing.T) {
	ix := New(logging.New("test"))
	now := time.Now()
	ix.Load([]*Record{
		rec("old", now.Add(-time.Hour)),
		rec("newest", now),
		rec("middle", now.Add(-time.Minute)),
	})

	hash, ok := ix.NewestHash()
	if !ok || hash != "newest" {
		t.Fatalf("expected newest hash to be 'newest', got %q (ok=%v)", hash, ok)
	}
	if ix.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", ix.Len())
	}
}

func TestUpsertInsertsAndReplaces(t *testing.T) {
	ix := New(logging.New("test"))
	now := time.Now()
	ix.Upsert(rec("a", now.Add(-time.Minute)))
	ix.Upsert(rec("b", now))

	if ix.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", ix.Len())
	}
	hash, _ := ix.NewestHash()
	if hash != "b" {
		t.Fatalf("expected 'b' to be newest, got %q", hash)
	}

	// Replacing "a" with a newer LastSeen should move it to the front.
	ix.Upsert(rec("a", now.Add(time.Minute)))
	hash, _ = ix.NewestHash()
	if hash != "a" {
		t.Fatalf("expected 'a' to become newest after re-upsert, got %q", hash)
	}
	if ix.Len() != 2 {
		t.Fatalf("expected upsert of an existing hash not to grow the index, got %d", ix.Len())
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	ix := New(logging.New("test"))
	ix.Upsert(rec("a", time.Now()))
	if !ix.Delete("a") {
		t.Fatal("expected delete of an existing hash to succeed")
	}
	if ix.Delete("a") {
		t.Fatal("expected delete of an already-removed hash to report false")
	}
	if ix.Len() != 0 {
		t.Fatalf("expected empty index after delete, got %d", ix.Len())
	}
}

func TestGetReturnsClone(t *testing.T) {
	ix := New(logging.New("test"))
	ix.Upsert(rec("a", time.Now()))
	r1, ok := ix.Get("a")
	if !ok {
		t.Fatal("expected to find 'a'")
	}
	r1.Summary = "mutated"

	r2, _ := ix.Get("a")
	if r2.Summary == "mutated" {
		t.Fatal("Get must return an independent clone, not a shared pointer")
	}
}

func TestResolveSelectorByOffset(t *testing.T) {
	ix := New(logging.New("test"))
	now := time.Now()
	ix.Load([]*Record{rec("newest", now), rec("older", now.Add(-time.Hour))})

	r, err := ix.ResolveSelector("0")
	if err != nil || r.Hash != "newest" {
		t.Fatalf("offset 0 should resolve to newest, got %+v err=%v", r, err)
	}
	r, err = ix.ResolveSelector("1")
	if err != nil || r.Hash != "older" {
		t.Fatalf("offset 1 should resolve to older, got %+v err=%v", r, err)
	}
	if _, err := ix.ResolveSelector("5"); err == nil {
		t.Fatal("expected out-of-range offset to error")
	}
}

func TestResolveSelectorByHashPrefix(t *testing.T) {
	ix := New(logging.New("test"))
	ix.Upsert(rec("abcdef0123456789", time.Now()))

	r, err := ix.ResolveSelector("abcdef")
	if err != nil {
		t.Fatalf("unexpected error resolving a unique prefix: %v", err)
	}
	if r.Hash != "abcdef0123456789" {
		t.Fatalf("unexpected resolved hash: %q", r.Hash)
	}
}

func TestResolveSelectorRejectsShortPrefix(t *testing.T) {
	ix := New(logging.New("test"))
	ix.Upsert(rec("abcdef0123456789", time.Now()))
	if _, err := ix.ResolveSelector("abc"); err == nil {
		t.Fatal("expected a prefix shorter than 6 chars to be rejected")
	}
}

func TestResolveSelectorAmbiguousPrefix(t *testing.T) {
	ix := New(logging.New("test"))
	ix.Upsert(rec("abcdef1111111111", time.Now()))
	ix.Upsert(rec("abcdef2222222222", time.Now().Add(-time.Minute)))

	if _, err := ix.ResolveSelector("abcdef"); err == nil {
		t.Fatal("expected ambiguous prefix matching two records to error")
	}
}

func TestResolveSelectorUnknownFullHash(t *testing.T) {
	ix := New(logging.New("test"))
	fullHash := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if _, err := ix.ResolveSelector(fullHash); err == nil {
		t.Fatal("expected an unknown full-length hash to error")
	}
}
