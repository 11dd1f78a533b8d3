package logic

// Estimator converts interval pulse counts into revolutions per minute.
// It owns the boundary of the current measurement interval.
type Estimator struct {
	pulsesPerRev float32
	lastMs       uint32
}

// NewEstimator creates an estimator whose first interval starts at startMs.
func NewEstimator(pulsesPerRev float32, startMs uint32) *Estimator {
	return &Estimator{
		pulsesPerRev: pulsesPerRev,
		lastMs:       startMs,
	}
}

// Sample closes the current interval at nowMs and returns its RPM.
//
// take must atomically read and reset the interval pulse count. It is called
// exactly once when a sample is produced, and not at all when ok is false:
// if the clock has not advanced since the previous sample, pulses stay in
// the counter and roll into the next interval.
//
// Elapsed time uses unsigned subtraction, so a wrapped millisecond clock
// still yields the correct interval length.
func (e *Estimator) Sample(nowMs uint32, take func() uint32) (rpm float32, ok bool) {
	elapsed := nowMs - e.lastMs
	if elapsed == 0 || e.pulsesPerRev <= 0 {
		return 0, false
	}

	pulses := take()
	e.lastMs = nowMs

	revs := float32(pulses) / e.pulsesPerRev
	seconds := float32(elapsed) / 1000
	return revs / seconds * 60, true
}

// LastMs returns the tick at which the current interval began.
func (e *Estimator) LastMs() uint32 {
	return e.lastMs
}
