package kernel

// FaultKind classifies fatal kernel conditions.
type FaultKind uint8

const (
	// FaultTaskReturn: a task entry function returned. Entries must loop
	// forever; a return means the task's stack or logic is broken.
	FaultTaskReturn FaultKind = iota + 1
	// FaultStackCorruption: a stack guard word was overwritten.
	FaultStackCorruption
)

// Fault describes a fatal kernel condition. Faults are outside the error
// code model: the kernel halts rather than recover, since its own state can
// no longer be trusted.
type Fault struct {
	Kind FaultKind
	Task *Task
}

func (f Fault) Error() string {
	name := "?"
	if f.Task != nil {
		name = f.Task.name
	}
	switch f.Kind {
	case FaultTaskReturn:
		return "kernel fault: task " + name + " returned from its entry function"
	case FaultStackCorruption:
		return "kernel fault: stack corruption in task " + name
	default:
		return "kernel fault: unknown"
	}
}

// SetFaultHandler installs a handler invoked at most once, on the first
// fault. The handler runs with the scheduler stopped; it must not call
// kernel operations and must not panic. Install it before Start.
//
// Without a handler the kernel panics on fault.
func (k *Kernel) SetFaultHandler(fn func(Fault)) {
	k.mu.Lock()
	k.faultFn = fn
	k.mu.Unlock()
}

func (k *Kernel) fault(f Fault) {
	k.faultOnce.Do(func() {
		k.faultInfo = f
		fn := k.faultFn
		close(k.halt)
		if fn == nil {
			panic(f.Error())
		}
		fn(f)
	})
}
