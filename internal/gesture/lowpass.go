// Package gesture shapes raw phone input into the scalar signals the engine reads.
package gesture

import (
	"math"
	"time"
)

// DefaultTimeConstant is the scratch smoothing time constant in seconds.
const DefaultTimeConstant = 0.05

var processStart = time.Now()

// Monotonic returns seconds since process start on the monotonic clock.
func Monotonic() float64 {
	return time.Since(processStart).Seconds()
}

// LowPass is a one-pole exponential filter over an irregularly sampled stream.
type LowPass struct {
	timeConstant float64
	now          func() float64

	started  bool
	prevTime float64
	value    float64
}

// NewLowPass creates a filter with the given time constant (seconds).
// A time constant that is not a positive finite number is replaced by
// DefaultTimeConstant. now supplies timestamps in seconds; nil uses Monotonic.
func NewLowPass(timeConstant float64, now func() float64) *LowPass {
	if now == nil {
		now = Monotonic
	}
	if !(timeConstant > 0) || math.IsInf(timeConstant, 1) {
		timeConstant = DefaultTimeConstant
	}
	return &LowPass{timeConstant: timeConstant, now: now}
}

// Input feeds x stamped with the filter clock.
func (f *LowPass) Input(x float64) (float64, bool) {
	return f.InputAt(x, f.now())
}

// InputAt feeds x stamped at now. The first sample only seeds the filter and
// reports ok=false; later samples return the filtered value. Non-finite
// samples or timestamps are dropped with ok=false, and a timestamp earlier
// than the previous one counts as simultaneous.
func (f *LowPass) InputAt(x, now float64) (float64, bool) {
	if !finite(x) || !finite(now) {
		return f.value, false
	}
	if !f.started {
		f.started = true
		f.prevTime = now
		f.value = x
		return 0, false
	}
	dt := math.Max(now-f.prevTime, 0)
	k := math.Exp(-2 * math.Pi * dt / f.timeConstant)
	f.value = k*f.value + (1-k)*x
	f.prevTime = now
	return f.value, true
}

// TimeConstant returns the filter time constant in seconds.
func (f *LowPass) TimeConstant() float64 {
	return f.timeConstant
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Value returns the last filtered value.
func (f *LowPass) Value() float64 {
	return f.value
}

// Reset forgets all history; the next input seeds the filter again.
func (f *LowPass) Reset() {
	f.started = false
	f.prevTime = 0
	f.value = 0
}
