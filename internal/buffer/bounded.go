package buffer

import "sync"

// Bounded is a capped, insertion-ordered collection holding the most recent
// pushes, newest first. Once the capacity is reached every push evicts the
// oldest item before inserting, so a concurrent reader never observes more
// than the capacity. Duplicate items are kept; the buffer never deduplicates.
//
// Internally a fixed ring: next is the slot the next push writes, so pushes
// stay O(1) regardless of capacity.
type Bounded[T any] struct {
	mu      sync.RWMutex
	ring    []T
	next    int
	size    int
	evicted int64
}

// NewBounded creates a buffer that retains at most capacity items.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{ring: make([]T, capacity)}
}

// Push inserts item as the newest entry, evicting the oldest when full.
func (b *Bounded[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.ring) {
		b.evicted++
	} else {
		b.size++
	}
	b.ring[b.next] = item
	b.next = (b.next + 1) % len(b.ring)
}

// Items returns a copy of the retained entries, newest first.
func (b *Bounded[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, b.size)
	for i := 1; i <= b.size; i++ {
		idx := (b.next - i + len(b.ring)) % len(b.ring)
		out = append(out, b.ring[idx])
	}
	return out
}

// Len returns the current number of retained entries.
func (b *Bounded[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the configured capacity.
func (b *Bounded[T]) Cap() int {
	return len(b.ring)
}

// EvictedCount returns how many entries have been dropped since creation.
func (b *Bounded[T]) EvictedCount() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evicted
}
