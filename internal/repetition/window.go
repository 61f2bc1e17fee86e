package repetition

// Window is a fixed-capacity ring buffer of the most recent samples.
// Pushing into a full window evicts the oldest sample in O(1).
type Window struct {
	values []float64
	start  int // index of the oldest sample
	size   int
}

// NewWindow creates an empty window. Capacities below 1 are raised to 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		values: make([]float64, capacity),
	}
}

// Push appends v. When the window is already full the oldest sample is
// evicted and returned with ok set to true.
func (w *Window) Push(v float64) (evicted float64, ok bool) {
	capacity := len(w.values)
	if w.size < capacity {
		w.values[(w.start+w.size)%capacity] = v
		w.size++
		return 0, false
	}

	evicted = w.values[w.start]
	w.values[w.start] = v
	w.start = (w.start + 1) % capacity
	return evicted, true
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.values)
}

// Full reports whether the window holds Cap() samples.
func (w *Window) Full() bool {
	return w.size == len(w.values)
}

// at returns the i-th sample, oldest first. It panics if i is out of range.
func (w *Window) at(i int) float64 {
	if i < 0 || i >= w.size {
		panic("repetition: window index out of range")
	}
	return w.values[(w.start+i)%len(w.values)]
}

// Values appends the samples, oldest first, to dst and returns the result.
func (w *Window) Values(dst []float64) []float64 {
	for i := 0; i < w.size; i++ {
		dst = append(dst, w.at(i))
	}
	return dst
}

// Reset empties the window without releasing its storage.
func (w *Window) Reset() {
	w.start = 0
	w.size = 0
}
