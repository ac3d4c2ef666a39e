//go:build !tinygo

package hal

import (
	"os"
	"sync"
)

// Config selects optional host backends.
type Config struct {
	// SerialPort, when set, routes Serial through a real serial device
	// instead of stdio.
	SerialPort string
	SerialBaud int
}

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	serial Serial
	fb     *hostFramebuffer
	clk    *hostTime
}

// New returns a host HAL implementation with default backends.
func New() HAL {
	h, err := NewWithConfig(Config{})
	if err != nil {
		// Defaults cannot fail.
		panic(err)
	}
	return h
}

// NewWithConfig returns a host HAL implementation.
func NewWithConfig(cfg Config) (HAL, error) {
	logger := &hostLogger{w: os.Stdout}
	h := &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		serial: &hostSerial{r: os.Stdin, w: os.Stdout},
		fb:     newHostFramebuffer(240, 160),
		clk:    newHostTime(),
	}
	if cfg.SerialPort != "" {
		port, err := openSerialPort(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return nil, err
		}
		h.serial = port
	}
	return h, nil
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Display() Display { return h.fb }
func (h *hostHAL) Time() Time       { return h.clk }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.WriteString(s)
	l.w.WriteString("\n")
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.WriteString("\n")
}

// hostLED logs edges; there is no physical pin on the host.
type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()
	if changed && l.logger != nil {
		if on {
			l.logger.WriteLineString("led: on")
		} else {
			l.logger.WriteLineString("led: off")
		}
	}
}
