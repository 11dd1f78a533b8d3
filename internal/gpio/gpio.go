// Package gpio provides falling-edge detection for the wheel's magnetic sensor.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// EdgeSource delivers sensor edges to a handler.
type EdgeSource interface {
	// Start begins delivering edges. onEdge runs on a goroutine owned by the
	// source, concurrently with the caller, and must return quickly.
	Start(onEdge func()) error

	// Close stops edge delivery and releases GPIO resources.
	Close() error
}

// Defaults for a Raspberry Pi header.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 17 // BCM numbering
)
