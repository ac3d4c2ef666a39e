package kernel

import "ember/errcode"

// Ring is a fixed-capacity circular buffer.
//
// One slot is kept free so that full and empty are distinguishable from the
// head/tail indexes alone: a Ring built over n slots holds at most n-1
// elements. The backing array is allocated once at construction; no operation
// allocates afterwards.
type Ring[T any] struct {
	_     [0]func() // prevent accidental copying.
	slots []T
	head  int
	tail  int
}

// NewRing creates a ring over n slots, holding up to n-1 elements.
// n must be at least 2.
func NewRing[T any](n int) *Ring[T] {
	if n < 2 {
		n = 2
	}
	return &Ring[T]{slots: make([]T, n)}
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	n := r.head - r.tail
	if n < 0 {
		n += len(r.slots)
	}
	return n
}

// Cap returns the maximum number of storable elements.
func (r *Ring[T]) Cap() int { return len(r.slots) - 1 }

// Empty reports whether the ring holds no elements.
func (r *Ring[T]) Empty() bool { return r.head == r.tail }

// Full reports whether the ring is at capacity.
func (r *Ring[T]) Full() bool { return (r.head+1)%len(r.slots) == r.tail }

// Push stores v as the newest element.
func (r *Ring[T]) Push(v T) error {
	if r.Full() {
		return errcode.BufferFull
	}
	r.slots[r.head] = v
	r.head = (r.head + 1) % len(r.slots)
	return nil
}

// PushOverwrite stores v, discarding the oldest element when full.
// It never fails and leaves Len unchanged on an already-full ring.
func (r *Ring[T]) PushOverwrite(v T) {
	if r.Full() {
		r.tail = (r.tail + 1) % len(r.slots)
	}
	r.slots[r.head] = v
	r.head = (r.head + 1) % len(r.slots)
}

// Pop removes and returns the oldest element.
func (r *Ring[T]) Pop() (T, error) {
	var zero T
	if r.Empty() {
		return zero, errcode.BufferEmpty
	}
	v := r.slots[r.tail]
	r.slots[r.tail] = zero
	r.tail = (r.tail + 1) % len(r.slots)
	return v, nil
}

// Peek returns a pointer to the oldest element without removing it.
// The pointer is valid until the next Pop, Clear, or overwriting Push.
func (r *Ring[T]) Peek() (*T, error) {
	if r.Empty() {
		return nil, errcode.BufferEmpty
	}
	return &r.slots[r.tail], nil
}

// PushBulk stores as many elements of src as fit and returns the count stored.
func (r *Ring[T]) PushBulk(src []T) int {
	n := 0
	for ; n < len(src) && !r.Full(); n++ {
		r.slots[r.head] = src[n]
		r.head = (r.head + 1) % len(r.slots)
	}
	return n
}

// PopBulk removes up to len(dst) oldest elements into dst and returns the
// count removed.
func (r *Ring[T]) PopBulk(dst []T) int {
	var zero T
	n := 0
	for ; n < len(dst) && !r.Empty(); n++ {
		dst[n] = r.slots[r.tail]
		r.slots[r.tail] = zero
		r.tail = (r.tail + 1) % len(r.slots)
	}
	return n
}

// PeekBulk copies up to len(dst) oldest elements into dst without removing
// them and returns the count copied.
func (r *Ring[T]) PeekBulk(dst []T) int {
	n := 0
	i := r.tail
	for ; n < len(dst) && i != r.head; n++ {
		dst[n] = r.slots[i]
		i = (i + 1) % len(r.slots)
	}
	return n
}

// Clear resets the ring to empty in O(1). Stored elements are not zeroed.
func (r *Ring[T]) Clear() {
	r.head = 0
	r.tail = 0
}
