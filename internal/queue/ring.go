package queue

import (
	"sync"
)

// Ring is a generic thread-safe bounded FIFO. Once full, pushing a new
// item overwrites the oldest one. Used for per-session trails where only
// the most recent frames matter.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	size  int
	limit int
}

// NewRing creates a ring holding at most limit items. A limit below one
// is treated as one.
func NewRing[T any](limit int) *Ring[T] {
	if limit < 1 {
		limit = 1
	}
	return &Ring[T]{
		buf:   make([]T, limit),
		limit: limit,
	}
}

// Push appends an item, evicting the oldest when full.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.head + r.size) % r.limit
	r.buf[idx] = item
	if r.size < r.limit {
		r.size++
	} else {
		r.head = (r.head + 1) % r.limit
	}
}

// Items returns the contents oldest-first.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%r.limit]
	}
	return out
}

// Len returns the number of items currently held.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the maximum number of items the ring holds.
func (r *Ring[T]) Cap() int {
	return r.limit
}

// Clear empties the ring. The backing array is kept.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
}
