package kernel

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ember/errcode"
)

// waitFor polls until cond holds or the test deadline expires. Kernel state
// changes are published under the kernel lock, so polling is race-free.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func waitState(t *testing.T, task *Task, want State) {
	t.Helper()
	waitFor(t, task.Name()+" to be "+want.String(), func() bool {
		return task.State() == want
	})
}

func TestNewTaskValidation(t *testing.T) {
	k := New()

	cases := []struct {
		name  string
		stack int
		prio  Priority
	}{
		{"tiny-stack", 128, PrioNormal},
		{"unaligned-stack", 300, PrioNormal},
		{"huge-stack", 1 << 20, PrioNormal},
		{"bad-prio", 512, 8},
	}
	for _, tc := range cases {
		if _, err := k.NewTask(tc.name, tc.stack, tc.prio, func() {}); !errors.Is(err, errcode.InvalidParameter) {
			t.Fatalf("NewTask(%s) error = %v, want %v", tc.name, err, errcode.InvalidParameter)
		}
	}
	if _, err := k.NewTask("", 512, PrioNormal, nil); !errors.Is(err, errcode.InvalidParameter) {
		t.Fatalf("NewTask(nil entry) error = %v, want %v", err, errcode.InvalidParameter)
	}

	tk, err := k.NewTask("worker", 512, PrioNormal, func() { select {} })
	if err != nil {
		t.Fatalf("NewTask(worker) error = %v, want nil", err)
	}
	if tk.Name() != "worker" || tk.StackSize() != 512 || tk.Priority() != PrioNormal {
		t.Fatalf("task attrs = (%q, %d, %d), want (worker, 512, %d)",
			tk.Name(), tk.StackSize(), tk.Priority(), PrioNormal)
	}

	go k.Start()
	waitState(t, tk, StateRunning)

	if _, err := k.NewTask("late", 512, PrioLow, func() { select {} }); !errors.Is(err, errcode.AlreadyInitialized) {
		t.Fatalf("NewTask after Start error = %v, want %v", err, errcode.AlreadyInitialized)
	}
}

func TestHighestPriorityRuns(t *testing.T) {
	k := New()

	low, _ := k.NewTask("low", 512, PrioLow, func() { select {} })
	normal, _ := k.NewTask("normal", 512, PrioNormal, func() { select {} })
	high, _ := k.NewTask("high", 512, PrioHigh, func() { select {} })

	go k.Start()

	waitState(t, high, StateRunning)
	if s := low.State(); s != StateReady {
		t.Fatalf("low.State() = %v, want %v", s, StateReady)
	}
	if s := normal.State(); s != StateReady {
		t.Fatalf("normal.State() = %v, want %v", s, StateReady)
	}
}

func TestDelayWakesAtExactTick(t *testing.T) {
	k := New()

	wokeAt := make(chan uint64, 1)
	task, _ := k.NewTask("sleeper", 512, PrioNormal, func() {
		if err := k.Delay(100 * time.Millisecond); err != nil {
			wokeAt <- ^uint64(0)
			select {}
		}
		wokeAt <- k.TickCount()
		select {}
	})

	go k.Start()
	waitState(t, task, StateDelayed)

	for i := 0; i < 99; i++ {
		k.Tick()
	}
	if s := task.State(); s != StateDelayed {
		t.Fatalf("task.State() after 99 ticks = %v, want %v", s, StateDelayed)
	}
	select {
	case got := <-wokeAt:
		t.Fatalf("task woke early at tick %d", got)
	default:
	}

	k.Tick()
	select {
	case got := <-wokeAt:
		if got != 100 {
			t.Fatalf("woke at tick %d, want 100", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("task did not wake at tick 100")
	}
}

func TestEqualPriorityYieldIsFIFO(t *testing.T) {
	k := New()

	order := make(chan string, 8)
	mk := func(name string) func() {
		return func() {
			for i := 0; i < 2; i++ {
				order <- name
				k.Yield()
			}
			select {}
		}
	}
	a, _ := k.NewTask("a", 512, PrioNormal, mk("a"))
	_, _ = k.NewTask("b", 512, PrioNormal, mk("b"))
	_ = a

	go k.Start()

	want := []string{"a", "b", "a", "b"}
	for i, w := range want {
		select {
		case got := <-order:
			if got != w {
				t.Fatalf("run order[%d] = %q, want %q", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out at run order[%d]", i)
		}
	}
}

func TestPreemptionFromInterruptContext(t *testing.T) {
	k := New()

	sem := k.NewBinarySemaphore()
	events := make(chan string, 4)

	high, _ := k.NewTask("high", 512, PrioHigh, func() {
		if err := sem.Take(Forever); err != nil {
			events <- "take-err"
		}
		events <- "high"
		select {}
	})
	low, _ := k.NewTask("low", 512, PrioLow, func() {
		events <- "low"
		for {
			k.Yield()
		}
	})

	go k.Start()

	waitState(t, high, StateBlocked)
	select {
	case got := <-events:
		if got != "low" {
			t.Fatalf("first event = %q, want low", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("low never ran")
	}

	// Interrupt context: wake the high task. The low task must lose the
	// processor at its next kernel entry.
	sem.Give()

	select {
	case got := <-events:
		if got != "high" {
			t.Fatalf("event after Give = %q, want high", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("high never preempted low")
	}
	waitState(t, high, StateRunning)
	waitState(t, low, StateReady)
}

func TestSuspendResume(t *testing.T) {
	k := New()

	worker, _ := k.NewTask("worker", 512, PrioNormal, func() {
		for {
			k.Yield()
		}
	})
	boss, _ := k.NewTask("boss", 512, PrioHigh, func() {
		select {}
	})
	_ = boss

	go k.Start()
	waitState(t, worker, StateReady)

	if err := k.Suspend(worker); err != nil {
		t.Fatalf("Suspend() = %v, want nil", err)
	}
	if s := worker.State(); s != StateSuspended {
		t.Fatalf("worker.State() = %v, want %v", s, StateSuspended)
	}
	if err := k.Suspend(worker); !errors.Is(err, errcode.InvalidParameter) {
		t.Fatalf("Suspend() twice = %v, want %v", err, errcode.InvalidParameter)
	}

	if err := k.Resume(worker); err != nil {
		t.Fatalf("Resume() = %v, want nil", err)
	}
	if s := worker.State(); s != StateReady {
		t.Fatalf("worker.State() after Resume = %v, want %v", s, StateReady)
	}
	if err := k.Resume(worker); !errors.Is(err, errcode.InvalidParameter) {
		t.Fatalf("Resume() of ready task = %v, want %v", err, errcode.InvalidParameter)
	}
}

func TestTaskReturnIsFatal(t *testing.T) {
	k := New()

	faults := make(chan Fault, 1)
	k.SetFaultHandler(func(f Fault) { faults <- f })

	k.NewTask("runaway", 512, PrioNormal, func() {
		// Returns immediately: a fatal kernel condition.
	})

	errs := make(chan error, 1)
	go func() { errs <- k.Start() }()

	select {
	case f := <-faults:
		if f.Kind != FaultTaskReturn {
			t.Fatalf("fault kind = %d, want %d", f.Kind, FaultTaskReturn)
		}
		if f.Task == nil || f.Task.Name() != "runaway" {
			t.Fatalf("fault task = %v, want runaway", f.Task)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no fault reported")
	}

	select {
	case err := <-errs:
		var f Fault
		if !errors.As(err, &f) || f.Kind != FaultTaskReturn {
			t.Fatalf("Start() = %v, want task-return fault", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start() did not return after fault")
	}
}

func TestStackGuardFault(t *testing.T) {
	k := New()

	faults := make(chan Fault, 1)
	k.SetFaultHandler(func(f Fault) { faults <- f })

	k.NewTask("smasher", 512, PrioNormal, func() {
		// Clobber a guard word, then give up the processor so the
		// dispatcher inspects the region.
		k.Delay(10 * time.Millisecond)
		select {}
	})

	go k.Start()

	// Corrupt once the task has parked itself.
	waitFor(t, "smasher to park", func() bool {
		for _, ti := range k.Snapshot() {
			if ti.Name == "smasher" && ti.State == StateDelayed {
				return true
			}
		}
		return false
	})
	for _, tk := range k.tasks {
		if tk.name == "smasher" {
			tk.StackRegion()[0] = 0
		}
	}
	for i := 0; i < 10; i++ {
		k.Tick()
	}

	select {
	case f := <-faults:
		if f.Kind != FaultStackCorruption {
			t.Fatalf("fault kind = %d, want %d", f.Kind, FaultStackCorruption)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no stack fault reported")
	}
}

func TestTickReachedWraparound(t *testing.T) {
	near := ^uint64(0) - 5

	if tickReached(near, near+10) {
		t.Fatalf("tickReached(%d, %d) = true, want false", near, near+10)
	}
	// near+10 wraps past zero; the deadline has still arrived.
	if !tickReached(near+10, near) {
		t.Fatalf("tickReached(%d, %d) = false, want true", near+10, near)
	}
}

func TestFaultStopsScheduling(t *testing.T) {
	k := New()
	faults := make(chan Fault, 1)
	k.SetFaultHandler(func(f Fault) { faults <- f })

	var spins atomic.Int64
	_, err := k.NewTask("spinner", 512, PrioLow, func() {
		for {
			spins.Add(1)
			k.Yield()
		}
	})
	if err != nil {
		t.Fatalf("NewTask(spinner) = %v, want nil", err)
	}
	victim, _ := k.NewTask("victim", 512, PrioHigh, func() {
		k.Delay(10 * time.Millisecond)
		select {}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- k.Start() }()
	waitState(t, victim, StateDelayed)

	victim.StackRegion()[0] = 0 // tear a guard word
	for i := 0; i < 10; i++ {
		k.Tick()
	}

	select {
	case f := <-faults:
		if f.Kind != FaultStackCorruption {
			t.Fatalf("fault kind = %v, want %v", f.Kind, FaultStackCorruption)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no fault after guard corruption")
	}
	if err := <-errCh; err == nil {
		t.Fatalf("Start() = nil, want the fault")
	}

	// The spinner was inside the kernel when the fault hit; it must stay
	// parked, not resume task code in a halted kernel.
	before := spins.Load()
	time.Sleep(50 * time.Millisecond)
	if after := spins.Load(); after != before {
		t.Fatalf("task ran %d more iterations after the kernel halted", after-before)
	}
}
