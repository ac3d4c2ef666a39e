//go:build tinygo && baremetal

package hal

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// consoleSerial is the interactive console port. It uses the uartx
// interrupt-driven driver so reads never spin while the console is idle.
type consoleSerial struct {
	u *uartx.UART
}

func newConsoleSerial() Serial {
	hw := uartx.UART1
	_ = hw.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP4,
		RX:       machine.GP5,
	})
	return &consoleSerial{u: hw}
}

func (s *consoleSerial) Read(p []byte) (int, error) {
	if s.u == nil {
		return 0, ErrNotImplemented
	}
	// Parks the goroutine until at least one byte arrives.
	return s.u.RecvSomeContext(context.Background(), p)
}

func (s *consoleSerial) Write(p []byte) (int, error) {
	if s.u == nil {
		return 0, ErrNotImplemented
	}
	return s.u.Write(p)
}
