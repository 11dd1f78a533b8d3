package logic

// Window is a fixed-capacity circular buffer of RPM samples.
// Not safe for concurrent use; it is owned by the control loop.
type Window struct {
	buf  []float32
	head int // next write position
	full bool
}

// NewWindow allocates a window holding the last size samples.
// A size below 1 is treated as 1.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]float32, size)}
}

// Push inserts a sample, overwriting the oldest once the window has wrapped.
func (w *Window) Push(sample float32) {
	w.buf[w.head] = sample
	w.head = (w.head + 1) % len(w.buf)
	if w.head == 0 {
		w.full = true
	}
}

// Len returns the number of valid samples.
func (w *Window) Len() int {
	if w.full {
		return len(w.buf)
	}
	return w.head
}

// Cap returns the window depth.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Full reports whether the window has wrapped at least once.
func (w *Window) Full() bool {
	return w.full
}

// Average returns the mean of the valid samples, or 0 when empty.
func (w *Window) Average() float32 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += w.buf[i]
	}
	return sum / float32(n)
}
