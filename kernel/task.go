package kernel

import "ember/errcode"

// Priority is a task scheduling priority. Higher runs first.
type Priority uint8

const (
	PrioIdle     Priority = 0
	PrioLow      Priority = 1
	PrioNormal   Priority = 3
	PrioHigh     Priority = 5
	PrioCritical Priority = 7

	// NumPriorities is the number of priority levels (one ready list each).
	NumPriorities = 8
)

// State describes where a task is in its lifecycle.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateDelayed
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateDelayed:
		return "delayed"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Stack size limits. Regions are 8-byte aligned so that a hardware port can
// hand them to an ABI that requires aligned stack pointers.
const (
	MinStackBytes = 256
	MaxStackBytes = 65536
)

const stackFill = 0xA5

// Task is the kernel's record for one schedulable unit. Tasks are created
// once, before Start, and are never destroyed.
type Task struct {
	_     [0]func() // prevent accidental copying.
	name  string
	entry func()

	base Priority // fixed for the task's lifetime
	eff  Priority // base plus any inheritance boost

	state    State
	wakeTick uint64 // valid while on the timer list
	timedOut bool   // set when a wait ended by timeout

	stack []byte

	gate chan struct{} // execution token, see switch_host.go

	next    *Task // ready/wait list link
	tnext   *Task // timer list link
	onTimer bool
	waitOn  *waitQueue // non-nil while Blocked

	held      *Mutex // intrusive list of mutexes this task owns
	waitMutex *Mutex // mutex this task is blocked on, if any

	k *Kernel
}

// Name returns the task's fixed name.
func (t *Task) Name() string { return t.name }

// Priority returns the task's base priority.
func (t *Task) Priority() Priority { return t.base }

// StackSize returns the size of the task's stack region in bytes.
func (t *Task) StackSize() int { return len(t.stack) }

// State returns the task's current scheduling state.
func (t *Task) State() State {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.state
}

// EffectivePriority returns the task's current scheduling priority,
// including any priority-inheritance boost.
func (t *Task) EffectivePriority() Priority {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.eff
}

func newTask(k *Kernel, name string, stackSize int, prio Priority, entry func()) (*Task, error) {
	if entry == nil || name == "" {
		return nil, errcode.InvalidParameter
	}
	if stackSize < MinStackBytes || stackSize > MaxStackBytes || stackSize%8 != 0 {
		return nil, errcode.InvalidParameter
	}
	if prio >= NumPriorities {
		return nil, errcode.InvalidParameter
	}
	t := &Task{
		name:  name,
		entry: entry,
		base:  prio,
		eff:   prio,
		state: StateReady,
		stack: make([]byte, stackSize),
		gate:  make(chan struct{}, 1),
		k:     k,
	}
	for i := range t.stack {
		t.stack[i] = stackFill
	}
	return t, nil
}

// canaryOK reports whether the guard words at both ends of the stack region
// are intact. On ports that execute on the region the top guard catches
// overflow; on the host it catches stray writes through StackRegion.
func (t *Task) canaryOK() bool {
	n := len(t.stack)
	for i := 0; i < 8; i++ {
		if t.stack[i] != stackFill || t.stack[n-8+i] != stackFill {
			return false
		}
	}
	return true
}

// stackHighWater returns the number of stack bytes never written, measured
// from the fill pattern.
func (t *Task) stackHighWater() int {
	n := 0
	for _, b := range t.stack {
		if b == stackFill {
			n++
		}
	}
	return n
}

// StackRegion exposes the task's stack region. The kernel owns this memory;
// it exists for hardware ports and diagnostics only.
func (t *Task) StackRegion() []byte { return t.stack }

// taskQueue is a FIFO of tasks linked through Task.next.
// The zero value is an empty queue.
type taskQueue struct {
	head, tail *Task
}

func (q *taskQueue) push(t *Task) {
	t.next = nil
	if q.tail != nil {
		q.tail.next = t
	} else {
		q.head = t
	}
	q.tail = t
}

func (q *taskQueue) pop() *Task {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.next
	if q.tail == t {
		q.tail = nil
	}
	t.next = nil
	return t
}

func (q *taskQueue) remove(t *Task) bool {
	var prev *Task
	for cur := q.head; cur != nil; cur = cur.next {
		if cur != t {
			prev = cur
			continue
		}
		if prev == nil {
			q.head = cur.next
		} else {
			prev.next = cur.next
		}
		if q.tail == cur {
			q.tail = prev
		}
		cur.next = nil
		return true
	}
	return false
}

func (q *taskQueue) empty() bool { return q.head == nil }

// waitQueue holds blocked tasks ordered by effective priority (highest
// first), FIFO within equal priority.
type waitQueue struct {
	head *Task
}

func (q *waitQueue) insert(t *Task) {
	var prev *Task
	for cur := q.head; cur != nil && cur.eff >= t.eff; cur = cur.next {
		prev = cur
	}
	if prev == nil {
		t.next = q.head
		q.head = t
	} else {
		t.next = prev.next
		prev.next = t
	}
}

func (q *waitQueue) pop() *Task {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.next
	t.next = nil
	return t
}

func (q *waitQueue) peek() *Task { return q.head }

func (q *waitQueue) remove(t *Task) bool {
	var prev *Task
	for cur := q.head; cur != nil; cur = cur.next {
		if cur != t {
			prev = cur
			continue
		}
		if prev == nil {
			q.head = cur.next
		} else {
			prev.next = cur.next
		}
		cur.next = nil
		return true
	}
	return false
}

// resort re-inserts t after its effective priority changed.
func (q *waitQueue) resort(t *Task) {
	if q.remove(t) {
		q.insert(t)
	}
}

func (q *waitQueue) empty() bool { return q.head == nil }
