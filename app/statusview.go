package app

import (
	"fmt"
	"image/color"
	"time"

	"tinygo.org/x/tinyfont"

	"ember/hal"
	"ember/kernel"
)

const statusPeriod = 250 * time.Millisecond

var (
	colorText = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	colorDim  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
)

// statusView redraws the diagnostic panel a few times per second. The panel
// is optional hardware; without one the task degrades to a pure sleeper.
func (s *system) statusView() func() {
	return func() {
		d := s.h.Display()
		for {
			_ = s.k.Delay(statusPeriod)
			if d == nil {
				continue
			}

			if c, ok := d.(hal.Clearer); ok {
				c.ClearRGB(0, 0, 0)
			}

			font := &tinyfont.Picopixel
			lineH := int16(font.GetYAdvance()) + 2
			y := lineH

			var produced, consumed uint64
			_ = s.stats.mu.WithLock(kernel.Forever, func() {
				produced = s.stats.produced
				consumed = s.stats.consumed
			})

			header := fmt.Sprintf("tick %d  p/c %d/%d", s.k.TickCount(), produced, consumed)
			tinyfont.WriteLine(d, font, 2, y, header, colorText)
			y += lineH

			for _, ti := range s.k.Snapshot() {
				c := colorText
				if ti.State == kernel.StateSuspended {
					c = colorDim
				}
				line := fmt.Sprintf("%-8s %-9s p%d/%d %4dB", ti.Name, ti.State, ti.Base, ti.Effective, ti.StackFree)
				tinyfont.WriteLine(d, font, 2, y, line, c)
				y += lineH
			}

			_ = d.Display()
		}
	}
}
