package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/satindergrewal/strumjam/internal/audio"
	"github.com/satindergrewal/strumjam/internal/config"
	"github.com/satindergrewal/strumjam/internal/markers"
)

func TestParseCurve(t *testing.T) {
	tests := []struct {
		def  string
		at   float64
		want float64
	}{
		{"constant:0.7", 12, 0.7},
		{"sine:4", 0, 0.5},
		{"sine:4", 1, 1},
		{"sine:4", 3, 0},
	}
	for _, tt := range tests {
		c, err := parseCurve(tt.def)
		if err != nil {
			t.Fatalf("parseCurve(%q): %v", tt.def, err)
		}
		if got := c(tt.at); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s at %v = %v, want %v", tt.def, tt.at, got, tt.want)
		}
	}

	for _, bad := range []string{"", "constant:x", "sine:0", "sine:-2", "ramp:1", "file:/does/not/exist"} {
		if _, err := parseCurve(bad); err == nil {
			t.Errorf("parseCurve(%q) = nil error, want error", bad)
		}
	}
}

func TestFileCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.txt")
	data := "# time value\n2 0.2\n0.5 1\n\n4 0\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := parseCurve("file:" + path)
	if err != nil {
		t.Fatalf("parseCurve: %v", err)
	}
	tests := []struct{ at, want float64 }{
		{0, 0},
		{0.5, 1},
		{1.9, 1},
		{2, 0.2},
		{10, 0},
	}
	for _, tt := range tests {
		if got := c(tt.at); got != tt.want {
			t.Errorf("curve(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	os.WriteFile(bad, []byte("1 2 3\n"), 0o644)
	if _, err := parseCurve("file:" + bad); err == nil {
		t.Error("three-column curve accepted")
	}
}

func renderSetup() (config.Config, *audio.Buffer, *audio.Buffer, markers.Table) {
	cfg := config.Config{
		Mode:          1,
		Period:        0.15,
		NumBeats:      8,
		Speed:         1,
		BacktrackGain: 1,
		GuitarGain:    1,
		MaxVoices:     4,
	}
	guitar := &audio.Buffer{Samples: make([]int16, audio.SampleRate*audio.Channels)}
	for i := range guitar.Samples {
		guitar.Samples[i] = 1000
	}
	backtrack := &audio.Buffer{Samples: make([]int16, audio.SampleRate/2*audio.Channels)}

	var table markers.Table
	table.Append(0.0, 0.1, 0, 0, 1) // mute
	table.Append(0.2, 0.1, 0, 1, 1) // A#m-high
	table.Append(0.4, 0.1, 0, 1, 2) // A#m-low
	return cfg, backtrack, guitar, table
}

func TestRenderDeterministic(t *testing.T) {
	cfg, backtrack, guitar, table := renderSetup()
	full, _ := parseCurve("constant:1")

	a, st, err := render(cfg, backtrack, guitar, table, full, 42, 1.4)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _, err := render(cfg, backtrack, guitar, table, full, 42, 1.4)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(a) != 70*audio.FrameSamples {
		t.Fatalf("rendered %d samples, want %d", len(a), 70*audio.FrameSamples)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("renders with the same seed differ at sample %d", i)
		}
	}

	if st.Counts["chord"] == 0 {
		t.Errorf("no chords at full energy: %v", st.Counts)
	}
	if st.Counts["silence"] != 0 {
		t.Errorf("%d silent beats at full energy", st.Counts["silence"])
	}
	if total := st.Counts["chord"] + st.Counts["mute"]; total != 10 {
		t.Errorf("%d beats decided in 1.4s, want 10", total)
	}

	peak := int16(0)
	for _, s := range a {
		if s > peak {
			peak = s
		}
	}
	if peak != 1000 {
		t.Errorf("peak = %d, want 1000", peak)
	}
}

func TestRenderSilentAtZeroEnergy(t *testing.T) {
	cfg, backtrack, guitar, table := renderSetup()
	none, _ := parseCurve("constant:0")

	out, st, err := render(cfg, backtrack, guitar, table, none, 1, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for i, s := range out {
		if s != 0 {
			t.Fatalf("sample %d = %d, want silence", i, s)
		}
	}
	if st.Counts["chord"] != 0 || st.Counts["mute"] != 0 {
		t.Errorf("counts = %v, want only silence", st.Counts)
	}
}

func TestPieceLength(t *testing.T) {
	cfg := config.Config{Period: 0.15, NumBeats: 200, Speed: 1}
	if got := pieceLength(cfg, 10); math.Abs(got-31) > 1e-9 {
		t.Errorf("pieceLength = %v, want 31", got)
	}
	if got := pieceLength(cfg, 60); got != 60 {
		t.Errorf("pieceLength with a long backtrack = %v, want 60", got)
	}
	cfg.Speed = 0
	if got := pieceLength(cfg, 0); math.IsInf(got, 0) {
		t.Error("pieceLength is infinite at speed 0")
	}
}
