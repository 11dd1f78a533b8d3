// Package logic contains the pure pulse-derivation core of the wheel sensor.
// This package has NO external dependencies on GPIO, transport, OS, or time.Sleep.
// Time is always injected as a millisecond tick count.
package logic

// DefaultWindowSize is the depth of the RPM smoothing window.
const DefaultWindowSize = 10

// Box states carried in actuation commands.
const (
	StateOpen   byte = 0
	StateClosed byte = 1
)

// Params holds the fixed conversion constants for a deployment.
type Params struct {
	PulsesPerRev  float32 // sensor edges per wheel revolution
	PulsesPerKcal float32 // lifetime edges per estimated kcal
	ThresholdStep float32 // kcal between successive box openings
	WindowSize    int     // RPM samples in the smoothing window
}

// DefaultParams returns the parameters used when no config overrides them.
func DefaultParams() Params {
	return Params{
		PulsesPerRev:  1,
		PulsesPerKcal: 100,
		ThresholdStep: 50,
		WindowSize:    DefaultWindowSize,
	}
}

// Actuation is a request to drive one box into a state.
type Actuation struct {
	Index uint32 // 1-based box index; wraps when narrowed to a wire byte
	State byte
}
