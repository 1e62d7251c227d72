// Package cache bounds memory spent rendering preview HTML fragments
// (spec §6.1 GET /item/:sel/preview). Rendering an image data-URL or a
// spreadsheet snippet table is not free, and the same entry is previewed
// repeatedly as a client scrolls a history list, so results are cached by
// (hash, interactive) key behind a byte-bounded LRU.
package cache

import (
	"fmt"
	"sync"
)

// DefaultMaxSize bounds total cached preview bytes (spec carries no number
// for this; 32MB keeps a few thousand previews resident without the API
// process growing unbounded).
const DefaultMaxSize = 32 * 1024 * 1024

// Logger is the narrow logging surface this package depends on.
type Logger interface {
	Log(level, message string)
}

// Entry is one cached rendering.
type Entry struct {
	HTML []byte
	Size int64
}

// Stats reports cache occupancy and hit/miss counters.
type Stats struct {
	TotalEntries int
	TotalSize    int64
	MaxSize      int64
	Hits         int64
	Misses       int64
}

// Cache is a size-bounded LRU cache of rendered preview fragments.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	lru     *LRUList
	size    int64
	maxSize int64
	hits    int64
	misses  int64
	log     Logger
}

// New creates a Cache bounded at maxSize bytes (DefaultMaxSize if <= 0).
func New(maxSize int64, log Logger) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		entries: make(map[string]*Entry),
		lru:     NewLRUList(),
		maxSize: maxSize,
		log:     log,
	}
}

// Key builds the cache key for a (hash, interactive) pair.
func Key(hash string, interactive bool) string {
	return fmt.Sprintf("%s|interactive:%t", hash, interactive)
}

// Get returns a cached rendering and marks it most-recently-used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.MoveToFront(key)
	return e.HTML, true
}

// Put stores a rendering, evicting the least-recently-used entries until
// the cache fits within maxSize.
func (c *Cache) Put(key string, html []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.size -= old.Size
		c.lru.Remove(key)
	}

	e := &Entry{HTML: html, Size: int64(len(html))}
	c.entries[key] = e
	c.lru.AddToFront(key)
	c.size += e.Size

	for c.size > c.maxSize && c.lru.Size() > 0 {
		oldest := c.lru.RemoveOldest()
		if oldest == "" {
			break
		}
		if victim, ok := c.entries[oldest]; ok {
			c.size -= victim.Size
			delete(c.entries, oldest)
		}
	}
}

// Invalidate drops every cached rendering for hash (both interactive
// variants), used when an entry is edited or deleted.
func (c *Cache) Invalidate(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, interactive := range []bool{true, false} {
		key := Key(hash, interactive)
		if e, ok := c.entries[key]; ok {
			c.size -= e.Size
			c.lru.Remove(key)
			delete(c.entries, key)
		}
	}
}

// Stats reports current occupancy and hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		TotalEntries: len(c.entries),
		TotalSize:    c.size,
		MaxSize:      c.maxSize,
		Hits:         c.hits,
		Misses:       c.misses,
	}
}
