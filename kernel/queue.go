package kernel

import (
	"time"

	"ember/errcode"
)

// MaxElemBytes is the largest element type a Queue may carry. Element types
// must also be trivially copyable with no embedded pointers, since the
// non-blocking operations are usable from interrupt context. Both
// constraints are enforced before the build by the verifier
// (verify.CheckElemType), not at run time.
const MaxElemBytes = 256

// Queue is a typed first-in-first-out message queue over a Ring. Send and
// Receive may suspend the calling task; TrySend and TryReceive never do and
// are interrupt-safe. Waiting tasks wake in priority order, FIFO within
// equal priority.
type Queue[T any] struct {
	k        *Kernel
	ring     *Ring[T]
	sendWait waitQueue
	recvWait waitQueue
}

// NewQueue creates a queue over n ring slots, holding up to n-1 elements.
func NewQueue[T any](k *Kernel, n int) *Queue[T] {
	return &Queue[T]{k: k, ring: NewRing[T](n)}
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	return q.ring.Len()
}

// Cap returns the maximum number of queued elements.
func (q *Queue[T]) Cap() int { return q.ring.Cap() }

// TrySend enqueues v without blocking. Interrupt-safe.
func (q *Queue[T]) TrySend(v T) error {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	if err := q.ring.Push(v); err != nil {
		return err
	}
	q.wakeOne(&q.recvWait)
	q.k.flagPreempt()
	return nil
}

// TryReceive dequeues one element without blocking. Interrupt-safe.
func (q *Queue[T]) TryReceive() (T, error) {
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	v, err := q.ring.Pop()
	if err != nil {
		var zero T
		return zero, err
	}
	q.wakeOne(&q.sendWait)
	q.k.flagPreempt()
	return v, nil
}

// Send enqueues v, suspending the calling task until space is available or
// timeout elapses. Pass Forever to wait indefinitely, NoWait for the
// non-blocking behavior of TrySend.
func (q *Queue[T]) Send(v T, timeout time.Duration) error {
	if timeout < 0 && timeout != Forever {
		return errcode.InvalidParameter
	}
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	q.k.honorPreempt()
	deadline := q.k.ticks.Load() + ticksFor(timeout)
	for {
		if err := q.ring.Push(v); err == nil {
			q.wakeOne(&q.recvWait)
			q.k.maybePreempt()
			return nil
		}
		if err := q.block(&q.sendWait, timeout, deadline); err != nil {
			return err
		}
		// Space may have been taken by a higher-priority sender that
		// ran first; re-check against the original deadline.
	}
}

// Receive dequeues the oldest element, suspending the calling task until
// data is available or timeout elapses.
func (q *Queue[T]) Receive(timeout time.Duration) (T, error) {
	var zero T
	if timeout < 0 && timeout != Forever {
		return zero, errcode.InvalidParameter
	}
	q.k.mu.Lock()
	defer q.k.mu.Unlock()
	q.k.honorPreempt()
	deadline := q.k.ticks.Load() + ticksFor(timeout)
	for {
		v, err := q.ring.Pop()
		if err == nil {
			q.wakeOne(&q.sendWait)
			q.k.maybePreempt()
			return v, nil
		}
		if err := q.block(&q.recvWait, timeout, deadline); err != nil {
			return zero, err
		}
	}
}

// block suspends the current task on w until woken or the deadline passes.
// The deadline is fixed when the operation enters the kernel, so a waiter
// that loses the wake race and blocks again never has its timeout extended.
// Requires k.mu held; returns with k.mu held.
func (q *Queue[T]) block(w *waitQueue, timeout time.Duration, deadline uint64) error {
	k := q.k
	cur := k.current
	if !k.started || cur == nil {
		return errcode.NotInitialized
	}
	if timeout == NoWait {
		if w == &q.sendWait {
			return errcode.BufferFull
		}
		return errcode.BufferEmpty
	}
	if timeout != Forever && tickReached(k.ticks.Load(), deadline) {
		return errcode.Timeout
	}
	w.insert(cur)
	cur.waitOn = w
	cur.state = StateBlocked
	if timeout != Forever {
		k.timers.add(cur, deadline)
	}
	k.switchFrom(cur)
	if cur.timedOut {
		cur.timedOut = false
		return errcode.Timeout
	}
	return nil
}

// wakeOne readies the highest-priority task waiting on w, if any.
// Requires k.mu held.
func (q *Queue[T]) wakeOne(w *waitQueue) {
	t := w.pop()
	if t == nil {
		return
	}
	t.waitOn = nil
	q.k.timers.remove(t)
	q.k.makeReady(t)
}
