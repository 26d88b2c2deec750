package markers

// Picker draws uniform integers in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// Index maps a label to the rows eligible for random playback, in table order.
type Index map[Label][]int

// BuildIndex collects every row with strength < 2 under its label.
// Rows with a higher strength, or with codes outside the chord table, are not indexed.
func BuildIndex(t Table) Index {
	idx := make(Index)
	for i := range t.Position {
		if i >= len(t.Strength) || i >= len(t.Chord) || i >= len(t.Variation) {
			break
		}
		if t.Strength[i] >= 2 {
			continue
		}
		label := ChordLabel(t.Chord[i], t.Variation[i])
		if label == "" {
			continue
		}
		idx[label] = append(idx[label], i)
	}
	return idx
}

// Pick returns a uniformly chosen row for label. ok is false when no row
// carries the label.
func (idx Index) Pick(label Label, p Picker) (row int, ok bool) {
	rows := idx[label]
	if len(rows) == 0 {
		return 0, false
	}
	return rows[p.IntN(len(rows))], true
}

// Labels reports how many rows each label holds.
func (idx Index) Labels() map[Label]int {
	out := make(map[Label]int, len(idx))
	for l, rows := range idx {
		out[l] = len(rows)
	}
	return out
}
