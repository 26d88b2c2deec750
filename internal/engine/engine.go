// Package engine decides, beat by beat, whether the guitar strums a chord,
// plays a muted strum, or stays silent, and which recorded segment it uses.
package engine

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/satindergrewal/strumjam/internal/markers"
	"github.com/satindergrewal/strumjam/internal/progression"
)

const (
	// EnergyWindow and ScratchWindow are the number of recent samples kept per signal.
	EnergyWindow  = 2
	ScratchWindow = 5

	// ChordLevel and MuteLevel are the signal levels above which a beat may
	// strum a chord or a muted strum.
	ChordLevel = 0.9
	MuteLevel  = 0.5

	// beatEpsilon absorbs float error when a beat is evaluated exactly on its
	// grid time, so (start + k*period - start)/period never floors to k-1.
	beatEpsilon = 1e-9
)

// SegmentPlayer plays pre-recorded segments of the guitar take.
type SegmentPlayer interface {
	SetActiveSegment(row int)
	TriggerPlayback(time float64)
}

// Rand is the randomness the engine draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Config is the static configuration of an engine.
type Config struct {
	Mode     int
	Offset   float64 // seconds between the clock origin and beat 0
	Period   float64 // beat duration, seconds
	NumBeats int
	Markers  markers.Table
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock sets the clock read by Start. It must be the same time base the
// transport passes to AdvancePosition.
func WithClock(now func() float64) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithDecisionHook installs a callback invoked after every beat decision.
// It runs on the caller of AdvancePosition; keep it brief.
func WithDecisionHook(fn func(Decision)) Option {
	return func(e *Engine) { e.onDecision = fn }
}

// Engine is the beat-synchronised guitar decision engine.
type Engine struct {
	player     SegmentPlayer
	now        func() float64
	rng        Rand
	onDecision func(Decision)

	offset      float64
	period      float64
	numBeats    int
	index       markers.Index
	progression []markers.Label

	mu             sync.Mutex
	energy         *ring
	scratch        *ring
	running        bool
	mode           int
	params         Params
	p1, p2         float64
	lastBeatPlayed int
	played         bool
	startTime      float64
	last           Decision
	counts         [3]int
}

// New builds an engine over the given marker table. player receives every
// resolved segment; the clock defaults to a zero clock and must be set with
// WithClock for real playback.
func New(cfg Config, player SegmentPlayer, opts ...Option) (*Engine, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %v", cfg.Period)
	}
	if cfg.NumBeats < 0 {
		return nil, fmt.Errorf("numBeats must not be negative, got %d", cfg.NumBeats)
	}
	if player == nil {
		return nil, errors.New("segment player is required")
	}
	if err := cfg.Markers.Validate(); err != nil {
		return nil, err
	}
	params, err := ModeParams(cfg.Mode)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		player:      player,
		now:         func() float64 { return 0 },
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		offset:      cfg.Offset,
		period:      cfg.Period,
		numBeats:    cfg.NumBeats,
		index:       markers.BuildIndex(cfg.Markers),
		progression: progression.Generate(cfg.NumBeats),
		energy:      newRing(EnergyWindow),
		scratch:     newRing(ScratchWindow),
		mode:        cfg.Mode,
		params:      params,
		p2:          params.P2Base,
	}
	for _, opt := range opts {
		opt(e)
	}

	if len(e.index[markers.Mute]) == 0 {
		log.Printf("Engine: no playable %q segments, mute triggers will be skipped", markers.Mute)
	}
	return e, nil
}

// Start begins a performance: the clock origin is captured and the current
// mode's policy is reinitialised.
func (e *Engine) Start() {
	t := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startTime = t
	e.running = true
	e.applyMode(e.mode)
}

// Stop ends a performance. Running probabilities are cleared; signal buffers
// and the last played beat are kept.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.p1 = 0
	e.p2 = 0
}

// ChangeMode selects a policy preset. It may be called at any time and
// applies from the next beat.
func (e *Engine) ChangeMode(mode int) error {
	if _, err := ModeParams(mode); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyMode(mode)
	return nil
}

// applyMode must be called with mu held.
func (e *Engine) applyMode(mode int) {
	e.mode = mode
	e.params = Modes[mode]
	e.p2 = e.params.P2Base
}

// Mode returns the current mode.
func (e *Engine) Mode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Params returns the policy parameters of the current mode.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Running reports whether the engine is between Start and Stop.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Period returns the beat duration in seconds.
func (e *Engine) Period() float64 {
	return e.period
}

// OnEnergy records a motion energy sample.
func (e *Engine) OnEnergy(v float64) {
	e.mu.Lock()
	e.energy.push(v)
	e.mu.Unlock()
}

// OnScratch records a scratch level sample.
func (e *Engine) OnScratch(v float64) {
	e.mu.Lock()
	e.scratch.push(v)
	e.mu.Unlock()
}

// beatAt must be called with mu held.
func (e *Engine) beatAt(time float64) int {
	return int(math.Floor((time-e.startTime-e.offset)/e.period + beatEpsilon))
}

// level combines both signals: the squared energy peak and the raw scratch
// peak. An empty buffer contributes nothing. Must be called with mu held.
func (e *Engine) level() float64 {
	level := math.Inf(-1)
	if m, ok := e.energy.max(); ok {
		level = m * m
	}
	if m, ok := e.scratch.max(); ok && m > level {
		level = m
	}
	if math.IsInf(level, -1) {
		return 0
	}
	return level
}

// Status is a snapshot of the engine for display.
type Status struct {
	Running        bool           `json:"running"`
	Mode           int            `json:"mode"`
	Params         Params         `json:"params"`
	P1             float64        `json:"p1"`
	P2             float64        `json:"p2"`
	LastBeatPlayed *int           `json:"last_beat_played"`
	Energy         []float64      `json:"energy"`
	Scratch        []float64      `json:"scratch"`
	Last           Decision       `json:"last"`
	Counts         map[string]int `json:"counts"`
	Segments       map[string]int `json:"segments"`
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		Running: e.running,
		Mode:    e.mode,
		Params:  e.params,
		P1:      e.p1,
		P2:      e.p2,
		Energy:  e.energy.values(),
		Scratch: e.scratch.values(),
		Last:    e.last,
		Counts: map[string]int{
			Silence.String(): e.counts[Silence],
			Chord.String():   e.counts[Chord],
			Mute.String():    e.counts[Mute],
		},
		Segments: make(map[string]int, len(e.index)),
	}
	if e.played {
		beat := e.lastBeatPlayed
		s.LastBeatPlayed = &beat
	}
	for l, n := range e.index.Labels() {
		s.Segments[string(l)] = n
	}
	return s
}
