// Package status provides a thread-safe status tracker for the wheel-sensor daemon.
// It is written by the control loop and read by HTTP handlers and the redis mirror.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	RPMIntervalMs       int64
	ThresholdIntervalMs int64
	ReportIntervalMs    int64
	PulsesPerRev        float32
	PulsesPerKcal       float32
	ThresholdStep       float32
	Transport           string
	LinkTarget          string // broker URL or CAN interface
	HTTPAddr            string
}

// Reading is the derived state published on every report tick.
type Reading struct {
	RPM            float32 // latest instantaneous sample
	AvgRPM         float32 // smoothed
	Pulses         uint32  // lifetime
	Kcal           float32
	OpenedBoxes    uint32
	NextTargetKcal float32
}

// Counts tracks link traffic since startup.
type Counts struct {
	Reports      int
	Actuations   int
	Overrides    int
	SendFailures int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Reading       Reading
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	LinkConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the derived reading and link counters.
// Called from runLoop on every report tick.
func (t *Tracker) Update(r Reading, c Counts) {
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetLinkConnected sets the broadcast link status.
func (t *Tracker) SetLinkConnected(connected bool) {
	t.mu.Lock()
	t.snap.LinkConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
