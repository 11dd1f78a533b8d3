package gpio

import (
	"errors"
	"sync"
)

// FakeSource is a test double that delivers edges on demand.
type FakeSource struct {
	mu      sync.Mutex
	handler func()

	// StartError, if set, will be returned by Start.
	StartError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates an unstarted FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// Start records the handler that Fire will call.
func (f *FakeSource) Start(onEdge func()) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler != nil {
		return errors.New("edge source already started")
	}
	f.handler = onEdge
	return nil
}

// Fire delivers n edges synchronously. Edges fired before Start or after
// Close are dropped, as they would be on real hardware.
func (f *FakeSource) Fire(n int) {
	f.mu.Lock()
	h := f.handler
	closed := f.Closed
	f.mu.Unlock()
	if h == nil || closed {
		return
	}
	for i := 0; i < n; i++ {
		h()
	}
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
