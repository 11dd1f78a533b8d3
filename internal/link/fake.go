package link

import "sync"

// FakeLink records sent frames for test assertions.
type FakeLink struct {
	mu sync.Mutex

	// Frames contains copies of all frames successfully sent.
	Frames [][]byte

	// Attempts counts every Send call, including failed ones.
	Attempts int

	// SendError, if set, will be returned by Send.
	SendError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeLink creates a connected FakeLink.
func NewFakeLink() *FakeLink {
	return &FakeLink{Connected: true}
}

// Send records the frame.
func (f *FakeLink) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Attempts++
	if f.SendError != nil {
		return f.SendError
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.Frames = append(f.Frames, cp)
	return nil
}

// Sent returns a copy of the recorded frames.
func (f *FakeLink) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.Frames))
	copy(out, f.Frames)
	return out
}

// IsConnected reports whether the fake link is "connected".
func (f *FakeLink) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Close marks the link as closed.
func (f *FakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
