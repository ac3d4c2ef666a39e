package kernel

import (
	"errors"
	"testing"

	"ember/errcode"
)

func TestRingFIFOAcrossWraparound(t *testing.T) {
	r := NewRing[int](5) // holds 4

	next := 0
	for i := 0; i < 3; i++ {
		if err := r.Push(next); err != nil {
			t.Fatalf("Push(%d) = %v, want nil", next, err)
		}
		next++
	}

	// Repeatedly pop two and push two so the indexes wrap several times.
	want := 0
	for round := 0; round < 10; round++ {
		for i := 0; i < 2; i++ {
			v, err := r.Pop()
			if err != nil {
				t.Fatalf("Pop() error = %v, want nil", err)
			}
			if v != want {
				t.Fatalf("Pop() = %d, want %d", v, want)
			}
			want++
		}
		for i := 0; i < 2; i++ {
			if err := r.Push(next); err != nil {
				t.Fatalf("Push(%d) = %v, want nil", next, err)
			}
			next++
		}
	}
}

func TestRingFullEmptyErrors(t *testing.T) {
	r := NewRing[byte](4) // holds 3

	if _, err := r.Pop(); !errors.Is(err, errcode.BufferEmpty) {
		t.Fatalf("Pop() on empty error = %v, want %v", err, errcode.BufferEmpty)
	}

	for i := byte(0); i < 3; i++ {
		if err := r.Push(i); err != nil {
			t.Fatalf("Push(%d) = %v, want nil", i, err)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	if !r.Full() {
		t.Fatalf("Full() = false, want true")
	}
	if err := r.Push(9); !errors.Is(err, errcode.BufferFull) {
		t.Fatalf("Push() on full error = %v, want %v", err, errcode.BufferFull)
	}
}

func TestRingPushOverwrite(t *testing.T) {
	r := NewRing[int](4)

	for i := 0; i < 3; i++ {
		r.PushOverwrite(i)
	}
	r.PushOverwrite(3) // discards 0

	if r.Len() != 3 {
		t.Fatalf("Len() after overwrite = %d, want 3", r.Len())
	}
	for want := 1; want <= 3; want++ {
		v, err := r.Pop()
		if err != nil {
			t.Fatalf("Pop() error = %v, want nil", err)
		}
		if v != want {
			t.Fatalf("Pop() = %d, want %d", v, want)
		}
	}
}

func TestRingPeek(t *testing.T) {
	r := NewRing[int](4)

	if _, err := r.Peek(); !errors.Is(err, errcode.BufferEmpty) {
		t.Fatalf("Peek() on empty error = %v, want %v", err, errcode.BufferEmpty)
	}

	r.PushOverwrite(7)
	p, err := r.Peek()
	if err != nil {
		t.Fatalf("Peek() error = %v, want nil", err)
	}
	if *p != 7 {
		t.Fatalf("Peek() = %d, want 7", *p)
	}
	*p = 8
	v, _ := r.Pop()
	if v != 8 {
		t.Fatalf("Pop() after mutable Peek = %d, want 8", v)
	}
}

func TestRingBulkWraparound(t *testing.T) {
	r := NewRing[int](5) // holds 4

	// Advance tail so bulk operations cross the index wrap.
	for i := 0; i < 3; i++ {
		r.PushOverwrite(-1)
	}
	for i := 0; i < 3; i++ {
		r.Pop()
	}

	src := []int{10, 11, 12, 13, 14, 15}
	if n := r.PushBulk(src); n != 4 {
		t.Fatalf("PushBulk() = %d, want 4", n)
	}

	peeked := make([]int, 6)
	if n := r.PeekBulk(peeked); n != 4 {
		t.Fatalf("PeekBulk() = %d, want 4", n)
	}
	dst := make([]int, 6)
	n := r.PopBulk(dst)
	if n != 4 {
		t.Fatalf("PopBulk() = %d, want 4", n)
	}
	for i := 0; i < 4; i++ {
		if dst[i] != 10+i {
			t.Fatalf("PopBulk() dst[%d] = %d, want %d", i, dst[i], 10+i)
		}
		if peeked[i] != dst[i] {
			t.Fatalf("PeekBulk() dst[%d] = %d, want %d", i, peeked[i], dst[i])
		}
	}
	if !r.Empty() {
		t.Fatalf("Empty() = false after draining, want true")
	}
}

func TestRingClearIdempotent(t *testing.T) {
	r := NewRing[int](4)
	r.PushOverwrite(1)
	r.PushOverwrite(2)

	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", r.Len())
	}
	r.Clear()
	if r.Len() != 0 || !r.Empty() {
		t.Fatalf("second Clear changed state: Len() = %d", r.Len())
	}
	if err := r.Push(3); err != nil {
		t.Fatalf("Push() after Clear = %v, want nil", err)
	}
}
