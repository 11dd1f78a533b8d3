package control

import (
	"bytes"
	"sync"
)

// FakeChannel is a test double with scripted input lines.
type FakeChannel struct {
	lines chan string

	mu     sync.Mutex
	out    bytes.Buffer
	Closed bool
}

// NewFakeChannel creates a FakeChannel. Lines are delivered via Send.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{lines: make(chan string)}
}

// Send hands a line to the reader as if it had been typed on the channel.
// It blocks until the line has been received.
func (f *FakeChannel) Send(line string) {
	f.lines <- line
}

// End closes the line channel, as a reader hitting EOF would.
func (f *FakeChannel) End() {
	close(f.lines)
}

// Lines returns the scripted line channel.
func (f *FakeChannel) Lines() <-chan string {
	return f.lines
}

// Write records status output.
func (f *FakeChannel) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Write(p)
}

// Output returns everything written so far.
func (f *FakeChannel) Output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

// Close marks the channel as closed.
func (f *FakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
