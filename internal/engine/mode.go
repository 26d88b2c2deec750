package engine

import "fmt"

// Params are the playback policy parameters selected by a mode.
type Params struct {
	P1Accent            float64 `json:"p1_accent"`
	P1NoAccent          float64 `json:"p1_no_accent"`
	P2Base              float64 `json:"p2_base"`
	P2MultiplyingFactor float64 `json:"p2_multiplying_factor"`
}

// Modes are the policy presets, indexed by mode number.
// Mode 0 only plays on accents; modes 1 and 2 fill in off-accent beats and
// grow more eager the longer no chord has been played.
var Modes = [...]Params{
	{P1Accent: 1, P1NoAccent: 0, P2Base: 0, P2MultiplyingFactor: 0},
	{P1Accent: 1, P1NoAccent: 0.3, P2Base: 0.4, P2MultiplyingFactor: 1.1},
	{P1Accent: 1, P1NoAccent: 0.5, P2Base: 0.5, P2MultiplyingFactor: 1.2},
}

// ModeParams returns the parameters of mode.
func ModeParams(mode int) (Params, error) {
	if mode < 0 || mode >= len(Modes) {
		return Params{}, fmt.Errorf("unknown mode %d (want 0-%d)", mode, len(Modes)-1)
	}
	return Modes[mode], nil
}

// accentSteps marks the accented positions of a 16-beat cycle.
var accentSteps = [16]bool{
	0: true, 3: true, 6: true, 10: true,
	12: true, 13: true, 14: true, 15: true,
}

// isAccent reports whether beat falls on an accent of its 16-beat cycle.
// Beats before the start of the piece count back through the same cycle.
func isAccent(beat int) bool {
	return accentSteps[(beat%16+16)%16]
}
