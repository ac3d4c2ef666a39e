//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	Ticks   uint64
}

// RunHeadless runs the system without opening a window. Each ticker fire
// advances the timebase by exactly one tick, so a bounded run is
// deterministic regardless of host load.
func RunHeadless(ctx context.Context, cfg Config, newApp func(HAL) func() error, hcfg HeadlessConfig) error {
	if hcfg.Hz <= 0 {
		hcfg.Hz = 1000
	}

	h, err := NewWithConfig(cfg)
	if err != nil {
		return err
	}
	hh := h.(*hostHAL)
	step := newApp(h)

	d := time.Second / time.Duration(hcfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", hcfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			hh.clk.stepN(1)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if hcfg.Ticks > 0 && tick >= hcfg.Ticks {
				return nil
			}
		}
	}
}
