// Package progression lays out the chord of every beat in the piece.
package progression

import "github.com/satindergrewal/strumjam/internal/markers"

const (
	// CycleBeats is the length of one phrase; variation resets every cycle.
	CycleBeats = 16
	// HighBeats is how many beats at the start of a cycle use the high voicing.
	HighBeats = 3
	// SectionBeats is how long each chord holds before the next one.
	SectionBeats = 2 * CycleBeats
)

// Generate returns the chord label of each beat in [0, numBeats).
// Sections walk markers.ChordNames in order and wrap after the last one.
// The result never contains markers.Mute.
func Generate(numBeats int) []markers.Label {
	if numBeats <= 0 {
		return nil
	}
	out := make([]markers.Label, numBeats)
	for beat := range out {
		section := (beat / SectionBeats) % len(markers.ChordNames)
		out[beat] = markers.LabelFor(markers.ChordNames[section], beat%CycleBeats < HighBeats)
	}
	return out
}
