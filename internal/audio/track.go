package audio

import "sync"

// Track plays a recording once from the start, on demand.
type Track struct {
	source *Buffer
	gain   float64

	mu      sync.Mutex
	playing bool
	pos     int // next source frame
}

// NewTrack wraps a decoded recording.
func NewTrack(source *Buffer, gain float64) *Track {
	return &Track{source: source, gain: gain}
}

// Play rewinds and starts the track.
func (t *Track) Play() {
	t.mu.Lock()
	t.playing = true
	t.pos = 0
	t.mu.Unlock()
}

// Halt stops the track where it is.
func (t *Track) Halt() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

// Finished reports whether the track played through to its end.
func (t *Track) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.playing && t.pos >= t.source.Frames() && t.pos > 0
}

// Position returns the playhead in seconds.
func (t *Track) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.pos) / SampleRate
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	return t.source.Duration()
}

// Mix adds the next len(dst)/2 frames of the track into dst.
func (t *Track) Mix(dst []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	n := len(dst) / Channels
	total := t.source.Frames()
	for i := 0; i < n && t.pos < total; i++ {
		src := t.pos * Channels
		dst[i*2] += float64(t.source.Samples[src]) * t.gain
		dst[i*2+1] += float64(t.source.Samples[src+1]) * t.gain
		t.pos++
	}
	if t.pos >= total {
		t.playing = false
	}
}
