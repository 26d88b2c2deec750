package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Buffer is decoded audio: interleaved stereo int16 at SampleRate.
type Buffer struct {
	Samples []int16
}

// Frames returns the length in sample frames (one sample per channel).
func (b *Buffer) Frames() int {
	if b == nil {
		return 0
	}
	return len(b.Samples) / Channels
}

// Duration returns the length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Frames()) / SampleRate
}

// clip16 saturates a mixed sample to the int16 range.
func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	} else if v < -32768 {
		return -32768
	}
	return int16(v)
}
