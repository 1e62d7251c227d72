package index

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/broadcast"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
)

// Index is the authoritative in-memory query structure. All mutations go
// through a single owner (this struct, behind mu); readers take the cheap
// read lock (spec §4.4, §5).
type Index struct {
	mu       sync.RWMutex
	records  []*Record          // ordered by LastSeen descending
	byHash   map[string]int     // hash -> position in records
	byPrefix map[string][]string // first two hex chars -> hashes sharing it

	broadcaster *broadcast.Broadcaster
	log         logging.Logger
}

// New creates an empty Index.
func New(log logging.Logger) *Index {
	return &Index{
		byHash:      make(map[string]int),
		byPrefix:    make(map[string][]string),
		broadcaster: broadcast.New(),
		log:         log,
	}
}

// Broadcaster exposes the change-notification fan-out.
func (ix *Index) Broadcaster() *broadcast.Broadcaster { return ix.broadcaster }

// Load replaces the whole record set, used once at startup after the store
// walk (spec §4.4 "populated at startup from the store walk").
func (ix *Index) Load(records []*Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = append([]*Record(nil), records...)
	sort.SliceStable(ix.records, func(i, j int) bool {
		return ix.records[i].LastSeen.After(ix.records[j].LastSeen)
	})
	ix.rebuildIndexesLocked()
}

func (ix *Index) rebuildIndexesLocked() {
	ix.byHash = make(map[string]int, len(ix.records))
	ix.byPrefix = make(map[string][]string, len(ix.records)/4+1)
	for i, r := range ix.records {
		ix.byHash[r.Hash] = i
		ix.indexPrefixLocked(r.Hash)
	}
}

func (ix *Index) indexPrefixLocked(h string) {
	if len(h) < 2 {
		return
	}
	p := h[:2]
	ix.byPrefix[p] = append(ix.byPrefix[p], h)
}

func (ix *Index) deindexPrefixLocked(h string) {
	if len(h) < 2 {
		return
	}
	p := h[:2]
	list := ix.byPrefix[p]
	for i, cand := range list {
		if cand == h {
			ix.byPrefix[p] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(ix.byPrefix[p]) == 0 {
		delete(ix.byPrefix, p)
	}
}

// Upsert inserts a new record or replaces an existing one with the same
// hash, re-sorting it into place by LastSeen. Insertion is the common case
// (LastSeen == now, record becomes newest) and lands at position 0 with one
// shift of the rest of the slice.
func (ix *Index) Upsert(r *Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if pos, ok := ix.byHash[r.Hash]; ok {
		ix.records = append(ix.records[:pos], ix.records[pos+1:]...)
		ix.deindexPrefixLocked(r.Hash) // re-added below at the right spot
	}

	pos := sort.Search(len(ix.records), func(i int) bool {
		return ix.records[i].LastSeen.Before(r.LastSeen) || ix.records[i].LastSeen.Equal(r.LastSeen)
	})
	ix.records = append(ix.records, nil)
	copy(ix.records[pos+1:], ix.records[pos:])
	ix.records[pos] = r

	ix.rebuildIndexesLocked()
}

// Delete removes a record by hash.
func (ix *Index) Delete(h string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pos, ok := ix.byHash[h]
	if !ok {
		return false
	}
	ix.records = append(ix.records[:pos], ix.records[pos+1:]...)
	ix.rebuildIndexesLocked()
	return true
}

// Get returns a cloned record by full hash.
func (ix *Index) Get(h string) (*Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pos, ok := ix.byHash[h]
	if !ok {
		return nil, false
	}
	return ix.records[pos].clone(), true
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// NewestHash returns the hash of the newest entry under the default
// ordering, or "" if the index is empty (for GET /mtime).
func (ix *Index) NewestHash() (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.records) == 0 {
		return "", false
	}
	return ix.records[0].Hash, true
}

// ResolveSelector resolves a caller-supplied selector (spec §4.1, §3): a
// non-negative integer is an offset into the current default ordering
// (0 = newest); otherwise it is treated as a >=6-char hash prefix, which
// must match exactly one record.
func (ix *Index) ResolveSelector(selector string) (*Record, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if n, err := strconv.Atoi(selector); err == nil && n >= 0 {
		if n >= len(ix.records) {
			return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("offset %d out of range", n))
		}
		return ix.records[n].clone(), nil
	}

	if len(selector) < 6 {
		return nil, apperr.New(apperr.KindNotFound, "hash prefix must be at least 6 characters")
	}

	var matches []*Record
	if len(selector) >= 64 {
		if pos, ok := ix.byHash[selector]; ok {
			return ix.records[pos].clone(), nil
		}
		return nil, apperr.New(apperr.KindNotFound, "unknown hash "+selector)
	}

	prefix2 := selector
	if len(prefix2) > 2 {
		prefix2 = selector[:2]
	}
	candidates := ix.byPrefix[prefix2]
	for _, h := range candidates {
		if len(h) >= len(selector) && h[:len(selector)] == selector {
			matches = append(matches, ix.records[ix.byHash[h]])
		}
	}
	switch len(matches) {
	case 0:
		return nil, apperr.New(apperr.KindNotFound, "no entry matches prefix "+selector)
	case 1:
		return matches[0].clone(), nil
	default:
		return nil, apperr.Wrap(apperr.KindNotFound, "ambiguous hash prefix "+selector, apperr.ErrAmbiguousHash)
	}
}
