// Package control reads override commands from the local control channel
// and writes status lines back to it.
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// DefaultBufferSize is the number of unread lines held before dropping.
const DefaultBufferSize = 16

// Channel is a line-oriented local control channel.
type Channel interface {
	// Lines delivers trimmed, non-empty lines. It is closed when the
	// underlying reader ends.
	Lines() <-chan string

	// Write sends raw status output to the channel.
	io.Writer

	// Close stops reading and releases the underlying port.
	Close() error
}

// StreamChannel implements Channel over any reader/writer pair.
type StreamChannel struct {
	r      io.Reader
	w      io.Writer
	closer io.Closer

	lines  chan string
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closeOnce sync.Once
}

// FromReader starts reading lines from r. Status writes go to w.
// closer may be nil; otherwise it is closed by Close.
func FromReader(r io.Reader, w io.Writer, closer io.Closer) *StreamChannel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &StreamChannel{
		r:      r,
		w:      w,
		closer: closer,
		lines:  make(chan string, DefaultBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.readLines()
	return c
}

// Lines returns the channel of received lines.
func (c *StreamChannel) Lines() <-chan string {
	return c.lines
}

// Write forwards p to the channel's writer.
func (c *StreamChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return len(p), nil
	}
	return c.w.Write(p)
}

// Close cancels reading and closes the underlying port, if any.
func (c *StreamChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}

func (c *StreamChannel) readLines() {
	defer close(c.lines)

	scanner := bufio.NewScanner(c.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case <-c.ctx.Done():
			return
		case c.lines <- line:
		default:
			log.Printf("control: line buffer full, dropping %q", line)
		}
	}

	if err := scanner.Err(); err != nil && c.ctx.Err() == nil {
		log.Printf("control: read error: %v", err)
	}
}

// Status is one periodic report written to the control channel.
type Status struct {
	RPM    float32
	Pulses uint32
	Kcal   float32
}

// WriteStatus writes the three status lines consumed by the host-side
// plotter: "RPM: <v>", "PULSE: <n>", "kCal: <v>".
func WriteStatus(w io.Writer, s Status) error {
	_, err := fmt.Fprintf(w, "RPM: %.2f\nPULSE: %d\nkCal: %.2f\n", s.RPM, s.Pulses, s.Kcal)
	return err
}
