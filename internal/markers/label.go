package markers

// Label tags a marker by chord and voicing, or "mute".
type Label string

// Mute is the label of chordCode 0 markers (muted strums).
const Mute Label = "mute"

// ChordNames lists the four chords of the piece, indexed by chordCode-1.
var ChordNames = [4]string{"A#m", "F#", "C#", "G#"}

// Variation codes select the voicing of a chord.
const (
	VariationHigh = 1
	VariationLow  = 2
)

var labels = func() map[[2]int]Label {
	m := make(map[[2]int]Label, len(ChordNames)*2)
	for i, name := range ChordNames {
		m[[2]int{i + 1, VariationHigh}] = Label(name + "-high")
		m[[2]int{i + 1, VariationLow}] = Label(name + "-low")
	}
	return m
}()

// ChordLabel maps a (chordCode, variationCode) pair to its label.
// chordCode 0 is always Mute. Codes outside the table yield "".
func ChordLabel(chordCode, variationCode int) Label {
	if chordCode == 0 {
		return Mute
	}
	return labels[[2]int{chordCode, variationCode}]
}

// LabelFor returns the label of a chord name in the given voicing.
func LabelFor(name string, high bool) Label {
	if high {
		return Label(name + "-high")
	}
	return Label(name + "-low")
}
