package link

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/brutella/can"

	"github.com/sweeney/wheel-sensor/internal/message"
)

// CAN defaults.
const (
	DefaultCANInterface = "can0"
	DefaultRPMFrameID   = 0x120
	DefaultCmdFrameID   = 0x121
)

// CANConfig configures the SocketCAN transport.
type CANConfig struct {
	Interface  string
	RPMFrameID uint32
	CmdFrameID uint32
}

// canBus is the subset of *can.Bus used by CANLink.
type canBus interface {
	Publish(frame can.Frame) error
	Disconnect() error
}

// CANLink broadcasts frames on a CAN bus. RPM reports and commands go out on
// separate frame IDs so receivers can filter in hardware.
type CANLink struct {
	bus        canBus
	rpmID      uint32
	cmdID      uint32
	disconnect atomic.Bool
}

// NewCANLink opens the interface and starts the bus reader.
func NewCANLink(cfg CANConfig) (*CANLink, error) {
	if cfg.Interface == "" {
		cfg.Interface = DefaultCANInterface
	}
	if cfg.RPMFrameID == 0 {
		cfg.RPMFrameID = DefaultRPMFrameID
	}
	if cfg.CmdFrameID == 0 {
		cfg.CmdFrameID = DefaultCmdFrameID
	}

	bus, err := can.NewBusForInterfaceWithName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("can: open %s: %w", cfg.Interface, err)
	}

	l := newCANLink(bus, cfg.RPMFrameID, cfg.CmdFrameID)
	go func() {
		if err := bus.ConnectAndPublish(); err != nil && !l.disconnect.Load() {
			log.Printf("can: bus error: %v", err)
		}
	}()
	return l, nil
}

func newCANLink(bus canBus, rpmID, cmdID uint32) *CANLink {
	return &CANLink{bus: bus, rpmID: rpmID, cmdID: cmdID}
}

// Send publishes one frame. The frame ID is chosen from the tag byte.
func (l *CANLink) Send(frame []byte) error {
	if len(frame) == 0 {
		return errors.New("can: empty frame")
	}
	if len(frame) > 8 {
		return fmt.Errorf("can: frame too long (%d bytes)", len(frame))
	}

	id := l.cmdID
	if frame[0] == message.TagRPM {
		id = l.rpmID
	}

	f := can.Frame{
		ID:     id,
		Length: uint8(len(frame)),
	}
	copy(f.Data[:], frame)

	if err := l.bus.Publish(f); err != nil {
		return fmt.Errorf("can: publish: %w", err)
	}
	return nil
}

// IsConnected reports whether Close has not been called.
func (l *CANLink) IsConnected() bool {
	return !l.disconnect.Load()
}

// Close disconnects from the bus.
func (l *CANLink) Close() error {
	if l.disconnect.Swap(true) {
		return nil
	}
	return l.bus.Disconnect()
}
