// Package broadcast implements the bounded "changed" fan-out described in
// spec §5: slow subscribers lose intermediate events but always receive the
// latest hash, and the broadcaster itself is never blocked by a stalled
// reader.
package broadcast

import "sync"

// Broadcaster fans out hash-changed notifications to any number of
// subscribers, each with its own single-slot mailbox.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan string
	next int
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan string)}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function. The channel has capacity 1; Publish overwrites a
// pending value rather than blocking.
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan string, 1)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish emits hash to every subscriber. A subscriber whose mailbox is
// already full has its stale entry dropped and replaced, so it always next
// receives the latest hash rather than blocking the publisher.
func (b *Broadcaster) Publish(hash string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- hash:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- hash:
			default:
			}
		}
	}
}
