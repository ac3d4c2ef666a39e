// Package app wires the kernel, the demo task set, and the serial console
// on top of a HAL instance. It is shared by the host and TinyGo entrypoints.
package app

import (
	"sync"
	"time"

	"ember/hal"
	"ember/kernel"
)

// Config selects optional app features.
type Config struct {
	// Monitor disables the serial command console when false.
	Monitor bool
	// Blinker period. Zero means the default 250ms.
	BlinkPeriod time.Duration
}

type system struct {
	k     *kernel.Kernel
	h     hal.HAL
	stats *stats

	mu    sync.Mutex
	tasks map[string]*kernel.Task

	faultCh chan error
}

// stats is shared between the producer/consumer pair and the status panel.
// Access goes through the kernel mutex so priority inheritance covers it.
type stats struct {
	mu       *kernel.Mutex
	produced uint64
	consumed uint64
	last     uint32
}

// Mutex lock IDs. Acquisition order is ascending.
const (
	lockStats = 1
	lockPanel = 2
)

// New initializes and starts the system with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{Monitor: true})
}

// Run starts the system and blocks forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	step := New(h)
	for {
		if err := step(); err != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// NewWithConfig initializes and starts the system. The returned step
// function reports a kernel fault, if one has occurred, to the runner.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	sys, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return func() error {
		select {
		case ferr := <-sys.faultCh:
			return ferr
		default:
			return nil
		}
	}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	if cfg.BlinkPeriod <= 0 {
		cfg.BlinkPeriod = 250 * time.Millisecond
	}

	k := kernel.New()
	sys := &system{
		k:       k,
		h:       h,
		stats:   &stats{mu: k.NewMutex(lockStats)},
		tasks:   make(map[string]*kernel.Task),
		faultCh: make(chan error, 1),
	}

	k.SetFaultHandler(func(f kernel.Fault) {
		h.Logger().WriteLineString("kernel fault: " + f.Error())
	})

	work := kernel.NewQueue[uint32](k, 8)
	rx := kernel.NewQueue[byte](k, 64)

	if err := sys.addTask("blink", 1024, kernel.PrioLow, sys.blinker(cfg.BlinkPeriod)); err != nil {
		return nil, err
	}
	if err := sys.addTask("producer", 2048, kernel.PrioNormal, sys.producer(work)); err != nil {
		return nil, err
	}
	if err := sys.addTask("consumer", 2048, kernel.PrioNormal+1, sys.consumer(work)); err != nil {
		return nil, err
	}
	if err := sys.addTask("status", 4096, kernel.PrioLow, sys.statusView()); err != nil {
		return nil, err
	}
	if cfg.Monitor {
		if err := sys.addTask("monitor", 4096, kernel.PrioHigh, sys.monitor(rx)); err != nil {
			return nil, err
		}
	}

	// Tick pump: the platform timebase is the kernel's only clock input.
	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for range ch {
					k.Tick()
				}
			}()
		}
	}

	// Serial RX pump. Bytes arrive outside task context, so only the
	// interrupt-safe queue side is used; overruns drop input.
	if cfg.Monitor {
		if s := h.Serial(); s != nil {
			go func() {
				buf := make([]byte, 64)
				for {
					n, err := s.Read(buf)
					if err != nil {
						return
					}
					for _, b := range buf[:n] {
						_ = rx.TrySend(b)
					}
				}
			}()
		}
	}

	go func() {
		sys.faultCh <- k.Start()
	}()

	return sys, nil
}

func (s *system) addTask(name string, stack int, prio kernel.Priority, entry func()) error {
	t, err := s.k.NewTask(name, stack, prio, entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks[name] = t
	s.mu.Unlock()
	return nil
}

func (s *system) taskByName(name string) *kernel.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[name]
}

func (s *system) blinker(period time.Duration) func() {
	led := s.h.LED()
	return func() {
		on := false
		for {
			if on {
				led.Low()
			} else {
				led.High()
			}
			on = !on
			_ = s.k.Delay(period)
		}
	}
}

func (s *system) producer(q *kernel.Queue[uint32]) func() {
	return func() {
		var seq uint32
		for {
			seq++
			_ = q.Send(seq, kernel.Forever)
			_ = s.stats.mu.WithLock(kernel.Forever, func() {
				s.stats.produced++
			})
			_ = s.k.Delay(100 * time.Millisecond)
		}
	}
}

func (s *system) consumer(q *kernel.Queue[uint32]) func() {
	return func() {
		for {
			v, err := q.Receive(kernel.Forever)
			if err != nil {
				continue
			}
			_ = s.stats.mu.WithLock(kernel.Forever, func() {
				s.stats.consumed++
				s.stats.last = v
			})
		}
	}
}
