// Package pulse holds the pulse counters shared between the GPIO edge
// handler and the control loop.
package pulse

import "sync"

// Counts is a consistent snapshot of both counters.
type Counts struct {
	Interval uint32 // edges since the last TakeInterval
	Lifetime uint32 // edges since startup
}

// Counter is incremented by the edge handler and read by the control loop.
// Every access goes through one short critical section, so no edge is lost
// or counted twice across an interval reset and no read is torn.
type Counter struct {
	mu       sync.Mutex
	interval uint32
	lifetime uint32
}

// OnEdge records one sensor edge. It does nothing else and never blocks
// beyond the critical section.
func (c *Counter) OnEdge() {
	c.mu.Lock()
	c.interval++
	c.lifetime++
	c.mu.Unlock()
}

// TakeInterval returns the interval count and resets it to zero in the same
// critical section.
func (c *Counter) TakeInterval() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.interval
	c.interval = 0
	return n
}

// Lifetime returns the never-reset edge total.
func (c *Counter) Lifetime() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifetime
}

// Snapshot returns both counters without resetting anything.
func (c *Counter) Snapshot() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counts{Interval: c.interval, Lifetime: c.lifetime}
}
