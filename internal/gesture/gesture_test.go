package gesture

import (
	"math"
	"testing"
)

type fakeClock struct{ t float64 }

func (c *fakeClock) now() float64 { return c.t }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

// --- LowPass ---

func TestLowPassFirstSampleSeeds(t *testing.T) {
	f := NewLowPass(0.05, nil)
	if _, ok := f.InputAt(1, 10); ok {
		t.Error("first InputAt reported ok, want no output")
	}
	if f.Value() != 1 {
		t.Errorf("Value() after seed = %v, want 1", f.Value())
	}
}

func TestLowPassStep(t *testing.T) {
	f := NewLowPass(0.05, nil)
	f.InputAt(0, 0)
	got, ok := f.InputAt(1, 0.01)
	if !ok {
		t.Fatal("second InputAt reported no output")
	}
	k := math.Exp(-2 * math.Pi * 0.01 / 0.05)
	if want := 1 - k; !almostEqual(got, want) {
		t.Errorf("filtered = %v, want %v", got, want)
	}

	got, _ = f.InputAt(1, 0.03)
	k2 := math.Exp(-2 * math.Pi * 0.02 / 0.05)
	if want := k2*(1-k) + (1 - k2); !almostEqual(got, want) {
		t.Errorf("filtered = %v, want %v", got, want)
	}
}

func TestLowPassConverges(t *testing.T) {
	f := NewLowPass(0.05, nil)
	var got float64
	for i := 0; i <= 100; i++ {
		got, _ = f.InputAt(0.8, float64(i)*0.01)
	}
	if !almostEqual(got, 0.8) {
		t.Errorf("constant input converged to %v, want 0.8", got)
	}
}

func TestLowPassZeroDtHoldsValue(t *testing.T) {
	f := NewLowPass(0.05, nil)
	f.InputAt(0.2, 1)
	got, _ := f.InputAt(5, 1)
	if got != 0.2 {
		t.Errorf("dt=0 output = %v, want unchanged 0.2", got)
	}
}

func TestLowPassUsesClock(t *testing.T) {
	clk := &fakeClock{}
	f := NewLowPass(0.05, clk.now)
	f.Input(0)
	clk.t = 1
	got, ok := f.Input(1)
	if !ok || got < 0.999 {
		t.Errorf("after 1s of input 1, got %v, %v, want ~1, true", got, ok)
	}
	f.Reset()
	if _, ok := f.Input(1); ok {
		t.Error("Input after Reset reported ok, want seed only")
	}
}

func TestLowPassTimeConstantFallsBack(t *testing.T) {
	for _, tc := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		f := NewLowPass(tc, nil)
		if got := f.TimeConstant(); got != DefaultTimeConstant {
			t.Errorf("NewLowPass(%v).TimeConstant() = %v, want %v", tc, got, DefaultTimeConstant)
		}
		f.InputAt(0.2, 1)
		f.InputAt(0.3, 1)
		if got, ok := f.InputAt(0.4, 2); !ok || !finite(got) {
			t.Errorf("time constant %v: output = %v, %v, want a finite value", tc, got, ok)
		}
	}
}

func TestLowPassDropsNonFinite(t *testing.T) {
	f := NewLowPass(0.05, nil)
	f.InputAt(0.5, 0)
	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got, ok := f.InputAt(x, 0.01); ok || got != 0.5 {
			t.Errorf("InputAt(%v) = %v, %v, want 0.5, false", x, got, ok)
		}
	}
	if _, ok := f.InputAt(1, math.NaN()); ok {
		t.Error("InputAt with NaN timestamp reported ok")
	}
	got, ok := f.InputAt(0.5, 0.02)
	if !ok || !almostEqual(got, 0.5) {
		t.Errorf("after dropped samples = %v, %v, want 0.5, true", got, ok)
	}
}

func TestLowPassBackwardsClockHoldsValue(t *testing.T) {
	f := NewLowPass(0.05, nil)
	f.InputAt(0.2, 5)
	if got, _ := f.InputAt(1, 4); got != 0.2 {
		t.Errorf("earlier timestamp output = %v, want unchanged 0.2", got)
	}
}

// --- Scratch ---

func TestScratchForwardsFilteredValues(t *testing.T) {
	clk := &fakeClock{}
	var got []float64
	s := NewScratch(0.05, 1, clk.now, func(v float64) { got = append(got, v) })

	s.Input(1) // seed, nothing forwarded
	if len(got) != 0 {
		t.Fatalf("seed forwarded %v", got)
	}
	clk.t = 0.01
	s.Input(0)
	if len(got) != 1 {
		t.Fatalf("forwarded %d values, want 1", len(got))
	}
	k := math.Exp(-2 * math.Pi * 0.01 / 0.05)
	if !almostEqual(got[0], k) {
		t.Errorf("forwarded %v, want %v", got[0], k)
	}
}

func TestScratchMoveSpeed(t *testing.T) {
	clk := &fakeClock{}
	var got []float64
	s := NewScratch(0.05, 0.5, clk.now, func(v float64) { got = append(got, v) })

	s.Move(0, 0) // anchor only
	clk.t = 0.1
	s.Move(0.3, 0.4) // speed 5/s, raw 2.5, seeds filter
	clk.t = 0.2
	s.Move(0.6, 0.8) // raw 2.5 again
	if len(got) != 1 {
		t.Fatalf("forwarded %d values, want 1", len(got))
	}
	if !almostEqual(got[0], 2.5) {
		t.Errorf("steady speed level = %v, want 2.5", got[0])
	}
}

func TestScratchReleasePullsDown(t *testing.T) {
	clk := &fakeClock{}
	var last float64
	s := NewScratch(0.05, 1, clk.now, func(v float64) { last = v })
	s.Input(1)
	clk.t = 0.01
	s.Input(1)
	clk.t = 1
	s.Release()
	if last > 1e-6 {
		t.Errorf("level after release = %v, want ~0", last)
	}
}

func TestScratchMoveOverflowIgnored(t *testing.T) {
	clk := &fakeClock{}
	var got []float64
	s := NewScratch(0.05, 1, clk.now, func(v float64) { got = append(got, v) })

	s.Move(-1e308, 0)
	clk.t = 0.1
	s.Move(1e308, 0) // distance overflows to +Inf
	clk.t = 0.2
	s.Move(1e308, 0.1)
	clk.t = 0.3
	s.Move(1e308, 0.2)
	if len(got) != 1 {
		t.Fatalf("forwarded %d values, want 1", len(got))
	}
	for _, v := range got {
		if !finite(v) {
			t.Errorf("forwarded %v, want finite", v)
		}
	}
}

// --- Motion ---

func TestMotionEnergy(t *testing.T) {
	m := Motion{Range: 9.81}
	tests := []struct {
		x, y, z float64
		want    float64
	}{
		{0, 0, 0, 0},
		{0, 0, 9.81, 0},
		{0, 0, 19.62, 1},
		{0, 0, 14.715, 0.5},
		{0, 0, 100, 1},
	}
	for _, tt := range tests {
		if got := m.Energy(tt.x, tt.y, tt.z); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Energy(%v, %v, %v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.want)
		}
	}
	if got := (Motion{}).Energy(0, 0, 30); got != 0 {
		t.Errorf("zero-range Energy = %v, want 0", got)
	}
}
