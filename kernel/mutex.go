package kernel

import (
	"time"

	"ember/errcode"
)

// Mutex is a task-context lock with priority inheritance: while a
// higher-priority task waits, the owner runs at the highest waiter's
// priority, bounding priority inversion. Ownership transfers directly to the
// highest-priority waiter on Unlock.
//
// Every mutex carries a fixed resource ID. Call sites that acquire several
// mutexes must acquire them in strictly increasing ID order; the verifier
// (verify.CheckLockOrder) rejects violating configurations before the build.
type Mutex struct {
	k        *Kernel
	id       int
	owner    *Task
	wait     waitQueue
	nextHeld *Mutex // link in the owner's held list
}

// NewMutex creates a mutex with the given lock-order resource ID.
func (k *Kernel) NewMutex(id int) *Mutex {
	return &Mutex{k: k, id: id}
}

// ID returns the mutex's lock-order resource ID.
func (m *Mutex) ID() int { return m.id }

// Owner returns the task currently holding the mutex, or nil.
func (m *Mutex) Owner() *Task {
	m.k.mu.Lock()
	defer m.k.mu.Unlock()
	return m.owner
}

// Lock acquires the mutex, suspending the calling task until it is free or
// timeout elapses. Recursive locking is rejected with InvalidParameter.
func (m *Mutex) Lock(timeout time.Duration) error {
	if timeout < 0 && timeout != Forever {
		return errcode.InvalidParameter
	}
	k := m.k
	k.mu.Lock()
	defer k.mu.Unlock()
	cur := k.current
	if !k.started || cur == nil {
		return errcode.NotInitialized
	}
	k.honorPreempt()
	if m.owner == nil {
		m.grant(cur)
		return nil
	}
	if m.owner == cur {
		return errcode.InvalidParameter
	}
	if timeout == NoWait {
		return errcode.Timeout
	}
	m.wait.insert(cur)
	cur.waitOn = &m.wait
	cur.waitMutex = m
	cur.state = StateBlocked
	m.boostOwner()
	if timeout != Forever {
		k.timers.add(cur, k.ticks.Load()+ticksFor(timeout))
	}
	k.switchFrom(cur)
	cur.waitMutex = nil
	if cur.timedOut {
		cur.timedOut = false
		m.boostOwner() // waiter set shrank; recompute
		return errcode.Timeout
	}
	// Unlock granted us ownership before waking us.
	return nil
}

// TryLock acquires the mutex without blocking.
func (m *Mutex) TryLock() error {
	return m.Lock(NoWait)
}

// Unlock releases the mutex, restoring the caller's inherited priority and
// handing ownership to the highest-priority waiter, if any.
func (m *Mutex) Unlock() error {
	k := m.k
	k.mu.Lock()
	defer k.mu.Unlock()
	cur := k.current
	if m.owner != cur || cur == nil {
		return errcode.InvalidParameter
	}
	m.release(cur)
	k.applyPriority(cur, m.inheritedPriority(cur))
	next := m.wait.pop()
	if next != nil {
		next.waitOn = nil
		k.timers.remove(next)
		m.grant(next)
		m.boostOwner()
		k.makeReady(next)
	}
	k.maybePreempt()
	return nil
}

// WithLock runs fn while holding the mutex, releasing it on every exit path
// including a panic inside fn.
func (m *Mutex) WithLock(timeout time.Duration, fn func()) error {
	if err := m.Lock(timeout); err != nil {
		return err
	}
	defer m.Unlock()
	fn()
	return nil
}

// --- internals; k.mu held ---

func (m *Mutex) grant(t *Task) {
	m.owner = t
	m.nextHeld = t.held
	t.held = m
}

func (m *Mutex) release(t *Task) {
	m.owner = nil
	if t.held == m {
		t.held = m.nextHeld
	} else {
		for h := t.held; h != nil; h = h.nextHeld {
			if h.nextHeld == m {
				h.nextHeld = m.nextHeld
				break
			}
		}
	}
	m.nextHeld = nil
}

// inheritedPriority computes t's effective priority as a pure function of
// its base priority and the waiters of every mutex it still holds.
func (m *Mutex) inheritedPriority(t *Task) Priority {
	p := t.base
	for h := t.held; h != nil; h = h.nextHeld {
		if w := h.wait.peek(); w != nil && w.eff > p {
			p = w.eff
		}
	}
	return p
}

// boostOwner raises the owner to the highest waiter priority, propagating
// through a chain of owners blocked on further mutexes.
func (m *Mutex) boostOwner() {
	for mx := m; mx != nil && mx.owner != nil; {
		owner := mx.owner
		p := mx.inheritedPriority(owner)
		if p == owner.eff {
			return
		}
		mx.k.applyPriority(owner, p)
		if owner.state != StateBlocked {
			return
		}
		mx = owner.waitMutex
	}
}

// applyPriority changes t's effective priority and fixes whatever list
// currently orders t by priority.
func (k *Kernel) applyPriority(t *Task, p Priority) {
	if p == t.eff {
		return
	}
	switch t.state {
	case StateReady:
		k.ready[t.eff].remove(t)
		t.eff = p
		k.ready[t.eff].push(t)
	case StateBlocked:
		t.eff = p
		if t.waitOn != nil {
			t.waitOn.resort(t)
		}
	default:
		t.eff = p
	}
}
