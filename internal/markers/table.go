package markers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table describes candidate audio segments as five parallel columns.
// Row i is the segment (Position[i], Duration[i], Strength[i], Chord[i], Variation[i]).
type Table struct {
	Position  []float64 `json:"position"`  // seconds into the source recording
	Duration  []float64 `json:"duration"`  // seconds
	Strength  []int     `json:"strength"`  // accent strength, < 2 is reusable
	Chord     []int     `json:"chord"`     // 0 = mute, 1..4 = chord
	Variation []int     `json:"variation"` // 1 = high, 2 = low
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Position)
}

// Validate checks that all columns have the same length.
func (t Table) Validate() error {
	n := len(t.Position)
	for name, l := range map[string]int{
		"duration":  len(t.Duration),
		"strength":  len(t.Strength),
		"chord":     len(t.Chord),
		"variation": len(t.Variation),
	} {
		if l != n {
			return fmt.Errorf("marker column %s has %d rows, position has %d", name, l, n)
		}
	}
	return nil
}

// Append adds one row.
func (t *Table) Append(position, duration float64, strength, chord, variation int) {
	t.Position = append(t.Position, position)
	t.Duration = append(t.Duration, duration)
	t.Strength = append(t.Strength, strength)
	t.Chord = append(t.Chord, chord)
	t.Variation = append(t.Variation, variation)
}

// ParseTable reads the whitespace-delimited source format: one row per
// segment, columns position, duration, strength, chord, variation.
// Blank lines and lines starting with '#' are skipped.
func ParseTable(r io.Reader) (Table, error) {
	var t Table
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 5 {
			return Table{}, fmt.Errorf("line %d: want 5 columns, got %d", line, len(fields))
		}
		pos, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Table{}, fmt.Errorf("line %d: position: %w", line, err)
		}
		dur, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Table{}, fmt.Errorf("line %d: duration: %w", line, err)
		}
		if math.IsNaN(pos) || math.IsInf(pos, 0) || math.IsNaN(dur) || math.IsInf(dur, 0) {
			return Table{}, fmt.Errorf("line %d: position and duration must be finite", line)
		}
		var ints [3]int
		for i, f := range fields[2:] {
			// values may be written as floats ("1.0") by analysis tools
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Table{}, fmt.Errorf("line %d: column %d: %w", line, i+3, err)
			}
			if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
				return Table{}, fmt.Errorf("line %d: column %d: %q is not an integer", line, i+3, f)
			}
			ints[i] = int(v)
		}
		t.Append(pos, dur, ints[0], ints[1], ints[2])
	}
	if err := sc.Err(); err != nil {
		return Table{}, fmt.Errorf("read marker table: %w", err)
	}
	return t, nil
}

// WriteTable writes t in the whitespace-delimited source format.
func WriteTable(w io.Writer, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i := range t.Position {
		fmt.Fprintf(bw, "%.6f %.6f %d %d %d\n", t.Position[i], t.Duration[i], t.Strength[i], t.Chord[i], t.Variation[i])
	}
	return bw.Flush()
}

// DecodeJSON reads the persisted marker document.
func DecodeJSON(r io.Reader) (Table, error) {
	var t Table
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Table{}, fmt.Errorf("decode markers: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// EncodeJSON writes t as the persisted marker document.
func EncodeJSON(w io.Writer, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}
	return nil
}

// Load reads a marker document from disk. Files ending in .txt are parsed as
// the whitespace table, anything else as JSON.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open markers: %w", err)
	}
	defer f.Close()
	if strings.HasSuffix(path, ".txt") {
		return ParseTable(f)
	}
	return DecodeJSON(f)
}
