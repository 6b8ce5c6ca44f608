package logger

import "sync"

// ring is a fixed-size circular buffer. The oldest entry is overwritten
// once the buffer is full.
type ring[T any] struct {
	items []T
	head  int
	count int
	mu    sync.RWMutex
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < len(r.items) {
		r.items[(r.head+r.count)%len(r.items)] = item
		r.count++
		return
	}
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
}

func (r *ring[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}
