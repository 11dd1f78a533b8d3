package logic

import "github.com/chewxy/math32"

// State is the single owned state of the derivation pipeline.
// The pulse counters live outside it because the edge handler writes them
// from another goroutine.
type State struct {
	Params    Params
	Estimator *Estimator
	Window    *Window
	Trigger   *Trigger

	lastRPM float32
}

// NewState builds the pipeline state. startMs is the clock reading at startup.
func NewState(p Params, startMs uint32) *State {
	if p.WindowSize <= 0 {
		p.WindowSize = DefaultWindowSize
	}
	return &State{
		Params:    p,
		Estimator: NewEstimator(p.PulsesPerRev, startMs),
		Window:    NewWindow(p.WindowSize),
		Trigger:   NewTrigger(p.ThresholdStep),
	}
}

// StepRPM runs one RPM cycle: close the interval, push the sample and return
// the smoothed average. ok is false when no new sample was produced.
func (s *State) StepRPM(nowMs uint32, take func() uint32) (avg float32, ok bool) {
	rpm, ok := s.Estimator.Sample(nowMs, take)
	if !ok || math32.IsInf(rpm, 0) || math32.IsNaN(rpm) {
		return s.Window.Average(), false
	}
	s.lastRPM = rpm
	s.Window.Push(rpm)
	return s.Window.Average(), true
}

// StepThreshold runs one threshold cycle against the lifetime pulse total.
func (s *State) StepThreshold(lifetime uint32) (float32, Actuation, bool) {
	kcal := TotalKcal(lifetime, s.Params.PulsesPerKcal)
	a, fired := s.Trigger.Check(kcal)
	return kcal, a, fired
}

// LastRPM returns the most recent instantaneous (unsmoothed) sample.
func (s *State) LastRPM() float32 {
	return s.lastRPM
}
