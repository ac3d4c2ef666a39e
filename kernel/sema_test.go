package kernel

import (
	"errors"
	"testing"
	"time"

	"ember/errcode"
)

func TestSemaphoreCountingWithoutScheduler(t *testing.T) {
	k := New()

	s, err := k.NewSemaphore(2, 3)
	if err != nil {
		t.Fatalf("NewSemaphore() error = %v, want nil", err)
	}
	if c := s.Count(); c != 2 {
		t.Fatalf("Count() = %d, want 2", c)
	}

	if err := s.TryTake(); err != nil {
		t.Fatalf("TryTake() = %v, want nil", err)
	}
	if err := s.TryTake(); err != nil {
		t.Fatalf("TryTake() = %v, want nil", err)
	}
	if err := s.TryTake(); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("TryTake() on empty = %v, want %v", err, errcode.Timeout)
	}

	// Give saturates at max.
	for i := 0; i < 5; i++ {
		s.Give()
	}
	if c := s.Count(); c != 3 {
		t.Fatalf("Count() after saturating gives = %d, want 3", c)
	}

	if _, err := k.NewSemaphore(1, 0); !errors.Is(err, errcode.InvalidParameter) {
		t.Fatalf("NewSemaphore(max=0) error = %v, want %v", err, errcode.InvalidParameter)
	}
}

func TestSemaphoreTakeBlocksUntilGive(t *testing.T) {
	k := New()

	s := k.NewBinarySemaphore()
	done := make(chan error, 1)
	task, _ := k.NewTask("taker", 512, PrioNormal, func() {
		done <- s.Take(Forever)
		select {}
	})

	go k.Start()
	waitState(t, task, StateBlocked)

	s.Give() // interrupt context
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Take() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Take() never completed")
	}
	if c := s.Count(); c != 0 {
		t.Fatalf("Count() after handoff = %d, want 0", c)
	}
}

func TestSemaphoreTakeTimeout(t *testing.T) {
	k := New()

	s := k.NewBinarySemaphore()
	done := make(chan error, 1)
	task, _ := k.NewTask("taker", 512, PrioNormal, func() {
		done <- s.Take(10 * time.Millisecond)
		select {}
	})

	go k.Start()
	waitState(t, task, StateBlocked)

	for i := 0; i < 10; i++ {
		k.Tick()
	}
	select {
	case err := <-done:
		if !errors.Is(err, errcode.Timeout) {
			t.Fatalf("Take() = %v, want %v", err, errcode.Timeout)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Take() never timed out")
	}
}

func TestSemaphoreWakesHighestPriorityWaiter(t *testing.T) {
	k := New()

	s := k.NewBinarySemaphore()
	park := k.NewBinarySemaphore()
	got := make(chan string, 2)
	mk := func(name string) func() {
		return func() {
			if err := s.Take(Forever); err == nil {
				got <- name
			}
			park.Take(Forever)
			select {}
		}
	}
	lo, _ := k.NewTask("lo", 512, PrioLow, mk("lo"))
	hi, _ := k.NewTask("hi", 512, PrioHigh, mk("hi"))

	go k.Start()
	waitState(t, lo, StateBlocked)
	waitState(t, hi, StateBlocked)

	s.Give()
	select {
	case name := <-got:
		if name != "hi" {
			t.Fatalf("first waiter woken = %q, want hi", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no waiter woke")
	}
	if st := lo.State(); st != StateBlocked {
		t.Fatalf("lo.State() = %v, want %v", st, StateBlocked)
	}
}

func TestSemaphoreNegativeTimeoutRejected(t *testing.T) {
	k := New()
	s := k.NewBinarySemaphore()
	if err := s.Take(-2 * time.Millisecond); !errors.Is(err, errcode.InvalidParameter) {
		t.Fatalf("Take(-2ms) error = %v, want %v", err, errcode.InvalidParameter)
	}
}
