// Package ring provides a fixed-capacity FIFO that drops its oldest entry
// when full.
package ring

// Buffer is a fixed-capacity FIFO. When full, Push overwrites the oldest item.
// Not safe for concurrent use; callers synchronize.
type Buffer[T any] struct {
	buf      []T
	head     int // next write position
	count    int
	overflow bool // true if any item was dropped since last drain
	dropped  uint64
}

// New creates a buffer holding at most capacity items.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{buf: make([]T, capacity)}
}

// Push appends v. It returns false if the oldest item was dropped to make room.
func (r *Buffer[T]) Push(v T) bool {
	if r.count == len(r.buf) {
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		r.overflow = true
		r.dropped++
		return false
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	r.count++
	return true
}

// Pop removes and returns the oldest item.
func (r *Buffer[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	v := r.buf[start]
	r.buf[start] = zero
	r.count--
	if r.count == 0 {
		r.overflow = false
	}
	return v, true
}

// DrainAll removes and returns every item, oldest first.
func (r *Buffer[T]) DrainAll() []T {
	if r.count == 0 {
		return nil
	}

	result := make([]T, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%len(r.buf)]
	}

	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

// Len returns the number of buffered items.
func (r *Buffer[T]) Len() int {
	return r.count
}

// Cap returns the buffer capacity.
func (r *Buffer[T]) Cap() int {
	return len(r.buf)
}

// Overflowed reports whether an item was dropped since the buffer was last
// emptied.
func (r *Buffer[T]) Overflowed() bool {
	return r.overflow
}

// Dropped returns the total number of items dropped since creation.
func (r *Buffer[T]) Dropped() uint64 {
	return r.dropped
}
