// Package verify performs build-time validation of a kernel configuration:
// stack and priority ranges, memory budgets, lock ordering, queue element
// type constraints, and interrupt-safety of call sites. It is meant to run
// from the build (go test, a generate step, or cmd/emberck), never on the
// device: a configuration that fails here must not reach hardware.
package verify

import (
	"errors"
	"fmt"
	"reflect"

	"ember/kernel"
)

// Named violations. Diagnostics wrap these so callers can match with
// errors.Is while still printing the specific constraint.
var (
	ErrStackSize        = errors.New("stack size out of range")
	ErrStackAlign       = errors.New("stack size not 8-byte aligned")
	ErrPriorityRange    = errors.New("priority out of range")
	ErrBudgetExceeded   = errors.New("memory budget exceeded")
	ErrLockOrder        = errors.New("lock acquisition order violation")
	ErrElemTooLarge     = errors.New("queue element type too large")
	ErrElemHasPointers  = errors.New("queue element type contains pointers")
	ErrNotInterruptSafe = errors.New("blocking operation in interrupt context")
)

// CheckStack validates a task stack size against the kernel's limits.
func CheckStack(size int) error {
	if size < kernel.MinStackBytes || size > kernel.MaxStackBytes {
		return fmt.Errorf("%w: %d bytes (allowed %d..%d)",
			ErrStackSize, size, kernel.MinStackBytes, kernel.MaxStackBytes)
	}
	if size%8 != 0 {
		return fmt.Errorf("%w: %d bytes", ErrStackAlign, size)
	}
	return nil
}

// CheckPriority validates a task priority.
func CheckPriority(prio int) error {
	if prio < 0 || prio >= kernel.NumPriorities {
		return fmt.Errorf("%w: %d (allowed 0..%d)", ErrPriorityRange, prio, kernel.NumPriorities-1)
	}
	return nil
}

// CheckElemType validates a queue element type: bounded in size and
// trivially copyable with no embedded pointers, so that values may cross
// task and interrupt context by plain copy.
func CheckElemType(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("%w: nil type", ErrElemHasPointers)
	}
	if t.Size() > kernel.MaxElemBytes {
		return fmt.Errorf("%w: %s is %d bytes (limit %d)",
			ErrElemTooLarge, t, t.Size(), kernel.MaxElemBytes)
	}
	if path := pointerPath(t, t.String()); path != "" {
		return fmt.Errorf("%w: %s (via %s)", ErrElemHasPointers, t, path)
	}
	return nil
}

// pointerPath returns a description of the first pointer-carrying field
// reached from t, or "" if the type is pointer-free.
func pointerPath(t reflect.Type, path string) string {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return ""
	case reflect.Array:
		return pointerPath(t.Elem(), path+"[_]")
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if p := pointerPath(f.Type, path+"."+f.Name); p != "" {
				return p
			}
		}
		return ""
	default:
		// Ptr, UnsafePointer, Slice, Map, Chan, String, Func, Interface.
		return path
	}
}

// InterruptSafeOps is the set of kernel operations callable from interrupt
// context. Everything else may suspend the caller and is task-context only.
var InterruptSafeOps = map[string]bool{
	"tick":        true,
	"tick_count":  true,
	"try_send":    true,
	"try_receive": true,
	"try_take":    true,
	"give":        true,
}

// CallSite is one kernel operation use, as declared in the manifest.
type CallSite struct {
	Where     string // source location or symbolic name
	Op        string // operation name, e.g. "send", "give"
	Interrupt bool   // the site runs in interrupt context
}

// CheckInterruptSafe rejects call sites that use a blocking operation from
// interrupt context.
func (s CallSite) CheckInterruptSafe() error {
	if !s.Interrupt || InterruptSafeOps[s.Op] {
		return nil
	}
	return fmt.Errorf("%w: %s calls %q", ErrNotInterruptSafe, s.Where, s.Op)
}
