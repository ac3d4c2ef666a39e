package hal

import (
	"errors"
	"io"

	"tinygo.org/x/drivers"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

// Serial is a byte transport (console UART on hardware, stdio or a real
// serial port on the host).
type Serial interface {
	io.Reader
	io.Writer
}

// Time provides the base tick stream. The platform emits one value per
// kernel tick period; the kernel treats this as its only clock input.
type Time interface {
	Ticks() <-chan uint64
}

// Display is a pixel surface for diagnostic panels. It satisfies the
// drivers Displayer contract so font rendering works unchanged on every
// port.
type Display interface {
	drivers.Displayer
}

// Clearer is implemented by displays that can clear in one call.
type Clearer interface {
	ClearRGB(r, g, b uint8)
}

var ErrNotImplemented = errors.New("not implemented")

// HAL is the only contact point between the kernel/application and the
// outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Serial() Serial
	Display() Display
	Time() Time
}
