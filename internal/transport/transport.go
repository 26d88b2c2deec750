// Package transport drives position engines along a musical timeline from an
// external clock.
package transport

import (
	"math"
	"sync"
)

// PositionEngine is anything that wants to be called back at positions of its
// own choosing. SyncPosition returns the first position to be called at when
// the transport (re)starts at position; AdvancePosition is called when that
// position is reached and returns the next one. Returning ±Inf, or a position
// that does not move in the direction of play, unschedules the engine.
type PositionEngine interface {
	SyncPosition(time, position, speed float64) float64
	AdvancePosition(time, position, speed float64) float64
}

type scheduled struct {
	engine PositionEngine
	next   float64
	active bool
}

// Transport maps clock time to position and calls each engine when its next
// position is reached.
type Transport struct {
	mu            sync.Mutex
	engines       []*scheduled
	running       bool
	speed         float64
	startTime     float64
	startPosition float64
}

// New creates a stopped transport playing at speed (1 is real time, negative
// plays backwards). A zero speed is treated as 1.
func New(speed float64) *Transport {
	if speed == 0 {
		speed = 1
	}
	return &Transport{speed: speed}
}

// Add schedules an engine. If the transport is running the engine is synced
// to the current position at time.
func (t *Transport) Add(e PositionEngine, time float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &scheduled{engine: e}
	if t.running {
		t.sync(s, time)
	}
	t.engines = append(t.engines, s)
}

// Start begins playback at position, at clock time.
func (t *Transport) Start(time, position float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.startTime = time
	t.startPosition = position
	for _, s := range t.engines {
		t.sync(s, time)
	}
}

// Stop halts playback; no engine is called until the next Start.
func (t *Transport) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

// Running reports whether the transport is playing.
func (t *Transport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Speed returns the playback speed.
func (t *Transport) Speed() float64 {
	return t.speed
}

// Position returns the musical position at clock time.
func (t *Transport) Position(time float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.startPosition
	}
	return t.startPosition + (time-t.startTime)*t.speed
}

// Advance calls every engine whose next position falls before clock time
// until, in time order, and returns how many calls were made.
func (t *Transport) Advance(until float64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	fired := 0
	for {
		var due *scheduled
		dueTime := until
		for _, s := range t.engines {
			if !s.active {
				continue
			}
			if at := t.timeOf(s.next); at < dueTime {
				due, dueTime = s, at
			}
		}
		if due == nil {
			return fired
		}
		next := due.engine.AdvancePosition(dueTime, due.next, t.speed)
		fired++
		t.reschedule(due, next)
	}
}

// sync must be called with mu held.
func (t *Transport) sync(s *scheduled, time float64) {
	position := t.startPosition + (time-t.startTime)*t.speed
	next := s.engine.SyncPosition(time, position, t.speed)
	s.active = !math.IsInf(next, 0) && !math.IsNaN(next)
	s.next = next
}

// reschedule must be called with mu held.
func (t *Transport) reschedule(s *scheduled, next float64) {
	forward := (t.speed > 0 && next > s.next) || (t.speed < 0 && next < s.next)
	s.active = forward && !math.IsInf(next, 0)
	s.next = next
}

// timeOf must be called with mu held.
func (t *Transport) timeOf(position float64) float64 {
	return t.startTime + (position-t.startPosition)/t.speed
}
