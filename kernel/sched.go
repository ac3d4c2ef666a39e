package kernel

import (
	"sync"
	"sync/atomic"
	"time"

	"ember/errcode"
)

// TickPeriod is the real-time length of one kernel tick. The HAL tick source
// must call Tick once per period; all delay and timeout arithmetic derives
// from it.
const TickPeriod = time.Millisecond

// Timeout sentinels for blocking operations.
const (
	NoWait  time.Duration = 0
	Forever time.Duration = -1
)

// Kernel is the scheduler: per-priority ready lists, the running task, the
// timer list, and the tick counter.
//
// Internally all state is guarded by one mutex, the host analog of the
// interrupt mask on a bare-metal port. Operations documented interrupt-safe
// (Tick, TrySend, TryReceive, Give, TryTake) only take that lock and never
// suspend the caller; every other operation may suspend and must only be
// called from task context.
type Kernel struct {
	mu sync.Mutex

	ready   [NumPriorities]taskQueue
	timers  timerList
	current *Task
	idle    *Task
	tasks   []*Task

	ticks atomic.Uint64

	started bool

	// needResched marks that an interrupt-context operation made a task
	// ready that outranks the running one. The running task honors it at
	// its next kernel entry; a hardware port would pend a context-switch
	// interrupt instead.
	needResched bool

	idleParked bool
	idleGate   chan struct{}

	halt      chan struct{}
	faultOnce sync.Once
	faultInfo Fault
	faultFn   func(Fault)
}

// New creates a kernel with its idle task installed.
func New() *Kernel {
	k := &Kernel{
		idleGate: make(chan struct{}, 1),
		halt:     make(chan struct{}),
	}
	idle, err := newTask(k, "idle", MinStackBytes, PrioIdle, func() {
		for {
			k.idleWait()
		}
	})
	if err != nil {
		// MinStackBytes and PrioIdle are valid by construction.
		panic(err)
	}
	k.idle = idle
	k.tasks = append(k.tasks, idle)
	k.ready[PrioIdle].push(idle)
	go idle.run()
	return k
}

// NewTask registers a task. All tasks must be created before Start; there is
// no dynamic task creation afterwards.
func (k *Kernel) NewTask(name string, stackSize int, prio Priority, entry func()) (*Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started {
		return nil, errcode.AlreadyInitialized
	}
	t, err := newTask(k, name, stackSize, prio, entry)
	if err != nil {
		return nil, err
	}
	k.tasks = append(k.tasks, t)
	k.ready[t.eff].push(t)
	go t.run()
	return t, nil
}

func (t *Task) run() {
	<-t.gate
	t.entry()
	// A task entry function must loop forever. Returning means kernel
	// state can no longer be trusted.
	t.k.fault(Fault{Kind: FaultTaskReturn, Task: t})
}

// Start begins scheduling with the highest-priority ready task. It blocks
// for the lifetime of the system and returns only if the kernel faults.
func (k *Kernel) Start() error {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return errcode.AlreadyInitialized
	}
	k.started = true
	next := k.popHighest()
	next.state = StateRunning
	k.current = next
	k.mu.Unlock()

	next.gate <- struct{}{}

	<-k.halt
	return k.faultInfo
}

// Tick advances kernel time by one tick and wakes every task whose delay or
// timeout has expired. It is the kernel's only clock input and must be called
// exactly once per TickPeriod by the platform tick source. Interrupt-safe.
func (k *Kernel) Tick() {
	k.mu.Lock()
	now := k.ticks.Add(1)
	for t := k.timers.expire(now); t != nil; {
		next := t.tnext
		t.tnext = nil
		if t.waitOn != nil {
			t.waitOn.remove(t)
			t.waitOn = nil
			t.timedOut = true
		}
		k.makeReady(t)
		t = next
	}
	k.flagPreempt()
	k.mu.Unlock()
}

// TickCount returns the monotonically increasing tick counter. Wraparound
// must be handled by callers via unsigned difference. Interrupt-safe.
func (k *Kernel) TickCount() uint64 { return k.ticks.Load() }

// Delay suspends the calling task for at least d. A zero d yields the
// processor to ready tasks of the same priority.
func (k *Kernel) Delay(d time.Duration) error {
	if d < 0 {
		return errcode.InvalidParameter
	}
	k.mu.Lock()
	cur := k.current
	if !k.started || cur == nil {
		k.mu.Unlock()
		return errcode.NotInitialized
	}
	k.honorPreempt()
	n := ticksFor(d)
	if n == 0 {
		k.rotate(cur)
		k.mu.Unlock()
		return nil
	}
	cur.state = StateDelayed
	k.timers.add(cur, k.ticks.Load()+n)
	k.switchFrom(cur)
	k.mu.Unlock()
	return nil
}

// Yield lets ready tasks of the same priority run before the caller resumes.
func (k *Kernel) Yield() {
	k.mu.Lock()
	if cur := k.current; k.started && cur != nil {
		k.honorPreempt()
		k.rotate(cur)
	}
	k.mu.Unlock()
}

// Suspend removes a Ready or Running task from scheduling until Resume.
// Suspending the idle task is rejected.
func (k *Kernel) Suspend(t *Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t == nil || t == k.idle {
		return errcode.InvalidParameter
	}
	switch t.state {
	case StateRunning:
		// On a single core a Running task is the caller itself.
		t.state = StateSuspended
		k.switchFrom(t)
		return nil
	case StateReady:
		k.ready[t.eff].remove(t)
		t.state = StateSuspended
		return nil
	default:
		return errcode.InvalidParameter
	}
}

// Resume returns a Suspended task to its ready list. Task context only.
func (k *Kernel) Resume(t *Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t == nil || t.state != StateSuspended {
		return errcode.InvalidParameter
	}
	k.makeReady(t)
	k.maybePreempt()
	return nil
}

// TaskInfo is a point-in-time snapshot of one task for diagnostics.
type TaskInfo struct {
	Name      string
	State     State
	Base      Priority
	Effective Priority
	StackSize int
	StackFree int
}

// Snapshot returns diagnostic state for every task.
func (k *Kernel) Snapshot() []TaskInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]TaskInfo, 0, len(k.tasks))
	for _, t := range k.tasks {
		out = append(out, TaskInfo{
			Name:      t.name,
			State:     t.state,
			Base:      t.base,
			Effective: t.eff,
			StackSize: len(t.stack),
			StackFree: t.stackHighWater(),
		})
	}
	return out
}

func ticksFor(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64((d + TickPeriod - 1) / TickPeriod)
}

// --- internals; every function below requires k.mu held ---

func (k *Kernel) popHighest() *Task {
	for p := NumPriorities - 1; p >= 0; p-- {
		if t := k.ready[p].pop(); t != nil {
			return t
		}
	}
	return nil
}

func (k *Kernel) highestReadyPrio() int {
	for p := NumPriorities - 1; p >= 0; p-- {
		if !k.ready[p].empty() {
			return p
		}
	}
	return -1
}

// makeReady moves t to its ready list and wakes the idle task if it is
// parked between ticks.
func (k *Kernel) makeReady(t *Task) {
	t.state = StateReady
	k.ready[t.eff].push(t)
	if k.idleParked {
		k.idleParked = false
		select {
		case k.idleGate <- struct{}{}:
		default:
		}
	}
}

// flagPreempt records that the running task is outranked. Used by
// interrupt-safe operations, which must not suspend the caller.
func (k *Kernel) flagPreempt() {
	if cur := k.current; cur != nil && k.highestReadyPrio() > int(cur.eff) {
		k.needResched = true
	}
}

// maybePreempt switches away from the calling task if a higher-priority task
// is ready. Task context only.
func (k *Kernel) maybePreempt() {
	cur := k.current
	if cur == nil || !k.started {
		return
	}
	if k.highestReadyPrio() > int(cur.eff) {
		cur.state = StateReady
		k.ready[cur.eff].push(cur)
		k.switchFrom(cur)
	}
}

// honorPreempt applies a preemption requested from interrupt context.
func (k *Kernel) honorPreempt() {
	if k.needResched {
		k.needResched = false
		k.maybePreempt()
	}
}

// rotate requeues the caller behind ready tasks of equal or higher priority.
func (k *Kernel) rotate(cur *Task) {
	if k.highestReadyPrio() >= int(cur.eff) {
		cur.state = StateReady
		k.ready[cur.eff].push(cur)
		k.switchFrom(cur)
	}
}

// switchFrom hands the processor to the highest-priority ready task. The
// caller must be the task losing the processor, with its state and list
// membership already updated. On return the caller is Running again and
// k.mu is held.
func (k *Kernel) switchFrom(cur *Task) {
	next := k.popHighest()
	if next == nil {
		// The idle task never blocks, so the ready lists cannot all be
		// empty while another task gives up the processor.
		k.haltFrom(Fault{Kind: FaultStackCorruption, Task: cur})
	}
	if !next.canaryOK() || !cur.canaryOK() {
		bad := next
		if !cur.canaryOK() {
			bad = cur
		}
		k.haltFrom(Fault{Kind: FaultStackCorruption, Task: bad})
	}
	if next == cur {
		next.state = StateRunning
		k.current = cur
		return
	}
	next.state = StateRunning
	k.current = next
	k.needResched = false
	k.mu.Unlock()
	k.contextSwitch(cur, next)
	k.mu.Lock()
}

// haltFrom reports a fault and parks the calling goroutine for good: once
// the kernel has halted, nothing may execute task code or schedule again.
// Requires k.mu held; releases it. Never returns.
func (k *Kernel) haltFrom(f Fault) {
	k.fault(f)
	k.mu.Unlock()
	select {}
}

// idleWait is the idle task body: run anything ready, otherwise park until
// the next tick or readiness change.
func (k *Kernel) idleWait() {
	k.mu.Lock()
	if k.highestReadyPrio() >= 0 {
		idle := k.current
		idle.state = StateReady
		k.ready[PrioIdle].push(idle)
		k.switchFrom(idle)
		k.mu.Unlock()
		return
	}
	k.idleParked = true
	k.mu.Unlock()
	select {
	case <-k.idleGate:
	case <-k.halt:
		// Halted kernels never schedule again.
		select {}
	}
}
