// Package link provides the unacknowledged broadcast link with abstraction
// for testing. Frames are opaque byte slices built by package message.
package link

import "fmt"

// Transports accepted by Begin.
const (
	TransportMQTT = "mqtt"
	TransportCAN  = "can"
)

// Link sends framed messages to every listener on the link.
type Link interface {
	// Send broadcasts one frame. Delivery is best effort: an error means the
	// frame was not handed to the transport and will not be retried.
	Send(frame []byte) error

	// Close releases the transport.
	Close() error
}

// ConnectionStatus reports whether the link is currently usable.
type ConnectionStatus interface {
	IsConnected() bool
}

// Config selects and configures a transport.
type Config struct {
	Transport string
	MQTT      MQTTConfig
	CAN       CANConfig
}

// Begin brings the configured link up. An error is fatal to the caller.
func Begin(cfg Config) (Link, error) {
	switch cfg.Transport {
	case TransportMQTT, "":
		return NewMQTTLink(cfg.MQTT)
	case TransportCAN:
		return NewCANLink(cfg.CAN)
	default:
		return nil, fmt.Errorf("unknown link transport %q", cfg.Transport)
	}
}
