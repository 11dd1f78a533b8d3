//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealSource watches a GPIO line for falling edges using the Linux GPIO
// character device.
type RealSource struct {
	chip     string
	offset   int
	debounce time.Duration
	line     *gpiocdev.Line
}

// NewRealSource creates an edge source for the given chip and line offset.
// A zero debounce disables kernel debouncing.
func NewRealSource(chip string, offset int, debounce time.Duration) (*RealSource, error) {
	if chip == "" {
		chip = DefaultChip
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid line offset %d", offset)
	}
	return &RealSource{chip: chip, offset: offset, debounce: debounce}, nil
}

// Start requests the line with falling-edge detection. The kernel event
// handler calls onEdge once per falling edge.
func (r *RealSource) Start(onEdge func()) error {
	if r.line != nil {
		return errors.New("edge source already started")
	}

	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type == gpiocdev.LineEventFallingEdge {
			onEdge()
		}
	}

	// Hall/reed sensors pull the line low on each magnet pass.
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(handler),
	}
	if r.debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(r.debounce))
	}

	line, err := gpiocdev.RequestLine(r.chip, r.offset, opts...)
	if err != nil {
		return fmt.Errorf("request line %s:%d: %w", r.chip, r.offset, err)
	}
	r.line = line
	return nil
}

// Close releases the line. Edge detection is removed first so no handler
// runs after Close returns.
func (r *RealSource) Close() error {
	if r.line == nil {
		return nil
	}

	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithoutEdges); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line %d: %w", r.offset, err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", r.offset, err))
	}
	r.line = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
