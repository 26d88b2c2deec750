package gesture

import "math"

// StandardGravity in m/s².
const StandardGravity = 9.81

// Motion normalises accelerometer readings to an energy level in [0, 1].
type Motion struct {
	// Range is the acceleration above gravity (m/s²) that maps to full energy.
	Range float64
}

// Energy returns (|a| - g) / Range clamped to [0, 1].
func (m Motion) Energy(x, y, z float64) float64 {
	if m.Range <= 0 {
		return 0
	}
	e := (math.Sqrt(x*x+y*y+z*z) - StandardGravity) / m.Range
	if e < 0 {
		return 0
	}
	if e > 1 {
		return 1
	}
	return e
}
