package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// CrossfadeFrames blends an outgoing frame with an incoming frame at the given
// progress (0.0 = all outgoing, 1.0 = all incoming). Uses smoothstep curve.
// Both frames must have the same length. Returns the blended frame.
func CrossfadeFrames(outgoing, incoming []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	result := make([]int16, len(outgoing))
	for i := range outgoing {
		result[i] = clip16(float64(outgoing[i])*(1-gain) + float64(incoming[i])*gain)
	}
	return result
}

// FadeOut scales a frame toward silence at the given progress
// (0.0 = unchanged, 1.0 = silent).
func FadeOut(frame []int16, progress float64) []int16 {
	return CrossfadeFrames(frame, make([]int16, len(frame)), progress)
}
