package logic

// Trigger fires one box-open request each time accumulated kcal crosses the
// next step of the threshold ladder.
//
// At most one request is emitted per Check, even when kcal has jumped past
// several thresholds at once. The remaining thresholds are caught on later
// calls, one per call.
type Trigger struct {
	step   float32
	opened uint32
}

// NewTrigger creates a trigger with the given kcal step.
func NewTrigger(step float32) *Trigger {
	return &Trigger{step: step}
}

// Check compares kcal against the next threshold.
// Returns the actuation to send and true when a threshold was crossed.
func (t *Trigger) Check(kcal float32) (Actuation, bool) {
	if t.step <= 0 {
		return Actuation{}, false
	}
	if kcal < t.NextTarget() {
		return Actuation{}, false
	}
	t.opened++
	return Actuation{Index: t.opened, State: StateOpen}, true
}

// NextTarget returns the kcal value that fires the next request.
func (t *Trigger) NextTarget() float32 {
	return t.step * float32(t.opened+1)
}

// Opened returns how many requests have fired since startup.
func (t *Trigger) Opened() uint32 {
	return t.opened
}
