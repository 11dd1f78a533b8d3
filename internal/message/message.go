// Package message defines the fixed-layout frames sent over the broadcast
// link and the textual override commands read from the local control channel.
package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Type tags.
const (
	TagRPM     byte = 'R'
	TagCommand byte = 'C'
)

// Frame sizes, including the tag byte.
const (
	RPMReportSize = 5
	CommandSize   = 3
)

// Requested box states. Any nonzero state means closed.
const (
	StateOpen   byte = 0
	StateClosed byte = 1
)

var (
	// ErrShortMessage is returned when a frame is shorter than its layout.
	ErrShortMessage = errors.New("message: short frame")
	// ErrUnknownTag is returned for a tag byte other than 'R' or 'C'.
	ErrUnknownTag = errors.New("message: unknown tag")
)

// Message is a decoded frame. Exactly one of RPM or Command is meaningful,
// selected by Tag.
type Message struct {
	Tag     byte
	RPM     float32
	Command Command
}

// Command addresses one box.
type Command struct {
	Target byte
	State  byte
}

// Open reports whether the command requests the open state.
func (c Command) Open() bool {
	return c.State == StateOpen
}

func (c Command) stateName() string {
	if c.Open() {
		return "open"
	}
	return "closed"
}

// EncodeRPMReport builds an 'R' frame carrying v as a little-endian
// IEEE-754 float32.
func EncodeRPMReport(v float32) []byte {
	b := make([]byte, RPMReportSize)
	b[0] = TagRPM
	binary.LittleEndian.PutUint32(b[1:], math.Float32bits(v))
	return b
}

// EncodeActuationCommand builds a 'C' frame for target and state.
func EncodeActuationCommand(target, state byte) []byte {
	return []byte{TagCommand, target, state}
}

// Decode parses a frame produced by one of the encoders.
// Trailing bytes beyond the fixed layout are rejected.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, ErrShortMessage
	}
	switch b[0] {
	case TagRPM:
		if len(b) != RPMReportSize {
			return Message{}, fmt.Errorf("rpm report: %w (len %d)", ErrShortMessage, len(b))
		}
		return Message{
			Tag: TagRPM,
			RPM: math.Float32frombits(binary.LittleEndian.Uint32(b[1:])),
		}, nil
	case TagCommand:
		if len(b) != CommandSize {
			return Message{}, fmt.Errorf("command: %w (len %d)", ErrShortMessage, len(b))
		}
		return Message{
			Tag:     TagCommand,
			Command: Command{Target: b[1], State: b[2]},
		}, nil
	default:
		return Message{}, fmt.Errorf("%w 0x%02x", ErrUnknownTag, b[0])
	}
}

// String renders the message for logs.
func (m Message) String() string {
	switch m.Tag {
	case TagRPM:
		return fmt.Sprintf("R rpm=%.2f", m.RPM)
	case TagCommand:
		return fmt.Sprintf("C target=%d %s", m.Command.Target, m.Command.stateName())
	default:
		return fmt.Sprintf("? tag=0x%02x", m.Tag)
	}
}
