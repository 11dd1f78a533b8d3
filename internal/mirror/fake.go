package mirror

import (
	"context"
	"sync"

	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/status"
)

// RecordedActuation is an actuation captured by FakeMirror.
type RecordedActuation struct {
	Actuation logic.Actuation
	Source    string
}

// FakeMirror records mirrored state for test assertions.
type FakeMirror struct {
	mu sync.Mutex

	Readings   []status.Reading
	Actuations []RecordedActuation

	// PublishError, if set, will be returned by Publish and RecordActuation.
	PublishError error

	Closed bool
}

// NewFakeMirror creates an empty FakeMirror.
func NewFakeMirror() *FakeMirror {
	return &FakeMirror{}
}

// Publish records the reading.
func (f *FakeMirror) Publish(_ context.Context, r status.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Readings = append(f.Readings, r)
	return nil
}

// RecordActuation records the actuation.
func (f *FakeMirror) RecordActuation(_ context.Context, a logic.Actuation, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Actuations = append(f.Actuations, RecordedActuation{Actuation: a, Source: source})
	return nil
}

// Close marks the mirror as closed.
func (f *FakeMirror) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
