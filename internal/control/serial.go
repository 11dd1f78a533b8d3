package control

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the MCU console.
const DefaultBaudRate = 115200

// OpenSerial opens a serial port and starts reading control lines from it.
func OpenSerial(port string, baud int) (*StreamChannel, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}

	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}

	return FromReader(p, p, p), nil
}
