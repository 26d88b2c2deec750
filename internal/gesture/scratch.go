package gesture

import (
	"math"
	"sync"
)

// Scratch turns pointer movement into a smoothed scratch level and hands every
// filtered value to a sink, typically the engine's OnScratch.
type Scratch struct {
	mu     sync.Mutex
	filter *LowPass
	sink   func(float64)
	gain   float64 // speed (units/s) to level

	hasPoint bool
	lastX    float64
	lastY    float64
	lastT    float64
}

// NewScratch creates a scratch shaper. gain scales pointer speed in
// normalised screen units per second to a level.
func NewScratch(timeConstant, gain float64, now func() float64, sink func(float64)) *Scratch {
	return &Scratch{
		filter: NewLowPass(timeConstant, now),
		sink:   sink,
		gain:   gain,
	}
}

// Input feeds a raw scratch magnitude.
func (s *Scratch) Input(v float64) {
	s.mu.Lock()
	out, ok := s.filter.Input(v)
	s.mu.Unlock()
	if ok && s.sink != nil {
		s.sink(out)
	}
}

// Move feeds a pointer position. The speed since the previous position,
// scaled by gain, is the raw magnitude.
func (s *Scratch) Move(x, y float64) {
	s.mu.Lock()
	now := s.filter.now()
	if !s.hasPoint {
		s.hasPoint = true
		s.lastX, s.lastY, s.lastT = x, y, now
		s.mu.Unlock()
		return
	}
	dt := now - s.lastT
	dist := math.Hypot(x-s.lastX, y-s.lastY)
	s.lastX, s.lastY, s.lastT = x, y, now
	raw := dist / dt * s.gain
	if dt <= 0 || !finite(raw) {
		s.mu.Unlock()
		return
	}
	out, ok := s.filter.InputAt(raw, now)
	s.mu.Unlock()
	if ok && s.sink != nil {
		s.sink(out)
	}
}

// Release ends a gesture: the pointer anchor is dropped and a zero sample
// pulls the level back down.
func (s *Scratch) Release() {
	s.mu.Lock()
	s.hasPoint = false
	s.mu.Unlock()
	s.Input(0)
}
