package engine

import (
	"math"

	"github.com/satindergrewal/strumjam/internal/markers"
)

// Kind is what a beat plays.
type Kind int

const (
	Silence Kind = iota
	Chord
	Mute
)

func (k Kind) String() string {
	switch k {
	case Chord:
		return "chord"
	case Mute:
		return "mute"
	default:
		return "silence"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Decision records what one beat did.
type Decision struct {
	Beat        int           `json:"beat"`
	Kind        Kind          `json:"kind"`
	Level       float64       `json:"level"`
	Probability float64       `json:"probability"`
	Label       markers.Label `json:"label,omitempty"`
	Row         int           `json:"row"` // -1 when nothing was played
	Played      bool          `json:"played"`
}

// SyncPosition snaps position onto the beat grid in the direction of travel:
// the first grid point at or after position when moving forward, at or
// before it when moving backward. A position already on the grid, within
// float error, is returned unchanged.
func (e *Engine) SyncPosition(time, position, speed float64) float64 {
	beats := position / e.period
	if math.Abs(beats-math.Round(beats)) <= beatEpsilon {
		return position
	}
	next := math.Floor(beats) * e.period
	if speed > 0 && next < position {
		next += e.period
	} else if speed < 0 && next > position {
		next -= e.period
	}
	return next
}

// AdvancePosition runs the decision for the beat at time and returns the
// position of the following beat.
func (e *Engine) AdvancePosition(time, position, speed float64) float64 {
	e.mu.Lock()
	var d Decision
	decided := e.running
	if decided {
		d = e.decide(time)
	}
	hook := e.onDecision
	e.mu.Unlock()

	if decided && hook != nil {
		hook(d)
	}
	if speed < 0 {
		return position - e.period
	}
	return position + e.period
}

// decide must be called with mu held.
func (e *Engine) decide(time float64) Decision {
	beat := e.beatAt(time)
	level := e.level()

	if isAccent(beat) {
		e.p1 = e.params.P1Accent
	} else {
		e.p1 = e.params.P1NoAccent
	}
	// The longer no chord has sounded, the likelier the next one.
	if e.played && e.lastBeatPlayed < beat-2 {
		e.p2 *= e.params.P2MultiplyingFactor
	}
	p := math.Max(e.p1, math.Min(e.p1*e.p2, 1))

	d := Decision{Beat: beat, Level: level, Probability: p, Row: -1}
	r := e.rng.Float64()
	switch {
	case level > ChordLevel && r < p:
		d.Kind = Chord
		e.lastBeatPlayed = beat
		e.played = true
		e.p2 = e.params.P2Base
	case level > MuteLevel:
		d.Kind = Mute
	default:
		d.Kind = Silence
	}
	if d.Kind != Silence {
		d.Row, d.Label, d.Played = e.trigger(time, d.Kind)
	}
	e.counts[d.Kind]++
	e.last = d
	return d
}

// Trigger plays a segment of the given kind for the beat at time.
// It returns the row handed to the player; played is false when the beat is
// past the end of the piece or no segment carries the wanted label.
func (e *Engine) Trigger(time float64, kind Kind) (row int, played bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	row, _, played = e.trigger(time, kind)
	return row, played
}

// trigger must be called with mu held.
func (e *Engine) trigger(time float64, kind Kind) (int, markers.Label, bool) {
	beat := e.beatAt(time)

	var label markers.Label
	switch {
	case kind == Chord && beat >= 0 && beat < len(e.progression):
		label = e.progression[beat]
	case kind == Mute || beat < 0:
		label = markers.Mute
	}
	if label == "" || beat >= e.numBeats {
		return -1, label, false
	}
	row, ok := e.index.Pick(label, e.rng)
	if !ok {
		// No candidate segment: skip rather than hand the player a bad row.
		return -1, label, false
	}
	e.player.SetActiveSegment(row)
	e.player.TriggerPlayback(time)
	return row, label, true
}
