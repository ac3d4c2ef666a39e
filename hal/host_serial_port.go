//go:build !tinygo

package hal

import (
	"fmt"

	"go.bug.st/serial"
)

// openSerialPort opens a real serial device for the host Serial backend,
// e.g. a USB adapter wired to a board running the TinyGo port.
func openSerialPort(name string, baud int) (Serial, error) {
	if baud <= 0 {
		baud = 115200
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	return port, nil
}
