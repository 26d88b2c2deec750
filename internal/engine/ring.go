package engine

// ring keeps the most recent samples of a signal in a fixed-size window.
// Pushing into a full ring evicts the oldest sample.
type ring struct {
	buf   []float64
	head  int // index of the most recent sample
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity), head: -1}
}

func (r *ring) push(v float64) {
	if len(r.buf) == 0 {
		return
	}
	r.head = (r.head + 1) % len(r.buf)
	r.buf[r.head] = v
	if r.count < len(r.buf) {
		r.count++
	}
}

// max returns the largest sample; ok is false when the ring is empty.
func (r *ring) max() (m float64, ok bool) {
	for i := 0; i < r.count; i++ {
		v := r.buf[(r.head-i+len(r.buf))%len(r.buf)]
		if i == 0 || v > m {
			m = v
		}
	}
	return m, r.count > 0
}

// values returns the samples most recent first.
func (r *ring) values() []float64 {
	out := make([]float64, r.count)
	for i := range out {
		out[i] = r.buf[(r.head-i+len(r.buf))%len(r.buf)]
	}
	return out
}
