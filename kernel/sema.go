package kernel

import (
	"time"

	"ember/errcode"
)

// Semaphore is a bounded counting semaphore. Take may suspend the calling
// task; Give and TryTake never do, so they are interrupt-safe. Give hands a
// token directly to the highest-priority waiter when one exists, FIFO within
// equal priority.
type Semaphore struct {
	k     *Kernel
	count uint32
	max   uint32
	wait  waitQueue
}

// NewSemaphore creates a counting semaphore with the given initial count and
// maximum. initial is clamped to max.
func (k *Kernel) NewSemaphore(initial, max uint32) (*Semaphore, error) {
	if max == 0 {
		return nil, errcode.InvalidParameter
	}
	if initial > max {
		initial = max
	}
	return &Semaphore{k: k, count: initial, max: max}, nil
}

// NewBinarySemaphore creates a semaphore with max 1, initially empty.
func (k *Kernel) NewBinarySemaphore() *Semaphore {
	s, _ := k.NewSemaphore(0, 1)
	return s
}

// Count returns the current token count.
func (s *Semaphore) Count() uint32 {
	s.k.mu.Lock()
	defer s.k.mu.Unlock()
	return s.count
}

// Take acquires one token, suspending the calling task until one is
// available or timeout elapses.
func (s *Semaphore) Take(timeout time.Duration) error {
	if timeout < 0 && timeout != Forever {
		return errcode.InvalidParameter
	}
	k := s.k
	k.mu.Lock()
	defer k.mu.Unlock()
	cur := k.current
	if !k.started || cur == nil {
		return errcode.NotInitialized
	}
	k.honorPreempt()
	if s.count > 0 {
		s.count--
		return nil
	}
	if timeout == NoWait {
		return errcode.Timeout
	}
	s.wait.insert(cur)
	cur.waitOn = &s.wait
	cur.state = StateBlocked
	if timeout != Forever {
		k.timers.add(cur, k.ticks.Load()+ticksFor(timeout))
	}
	k.switchFrom(cur)
	if cur.timedOut {
		cur.timedOut = false
		return errcode.Timeout
	}
	// Give handed the token to us without touching the count.
	return nil
}

// TryTake acquires one token without blocking. Interrupt-safe.
func (s *Semaphore) TryTake() error {
	s.k.mu.Lock()
	defer s.k.mu.Unlock()
	if s.count == 0 {
		return errcode.Timeout
	}
	s.count--
	return nil
}

// Give releases one token, waking the highest-priority waiter if any,
// otherwise incrementing the count, saturating at the maximum.
// Interrupt-safe.
func (s *Semaphore) Give() {
	k := s.k
	k.mu.Lock()
	defer k.mu.Unlock()
	if t := s.wait.pop(); t != nil {
		t.waitOn = nil
		k.timers.remove(t)
		k.makeReady(t)
		k.flagPreempt()
		return
	}
	if s.count < s.max {
		s.count++
	}
}
