package audio

import (
	"math"
	"sync"

	"github.com/satindergrewal/strumjam/internal/markers"
)

// DefaultFade is the fade-in/fade-out length of a segment voice, in sample frames (5ms).
const DefaultFade = SampleRate * 5 / 1000

type voice struct {
	start  int64 // absolute output frame at which the segment begins
	from   int   // first source frame
	length int   // frames to play
}

// Sampler plays segments of one recording, addressed by marker table row.
// Segments overlap: a new trigger lets earlier ones ring out to their end.
type Sampler struct {
	source    *Buffer
	table     markers.Table
	gain      float64
	maxVoices int
	fade      int

	mu     sync.Mutex
	active int
	voices []voice
}

// NewSampler creates a sampler over source cut by table. At most maxVoices
// segments sound at once; the oldest is dropped to make room.
func NewSampler(source *Buffer, table markers.Table, gain float64, maxVoices int) *Sampler {
	if maxVoices < 1 {
		maxVoices = 1
	}
	return &Sampler{
		source:    source,
		table:     table,
		gain:      gain,
		maxVoices: maxVoices,
		fade:      DefaultFade,
		active:    -1,
	}
}

// SetActiveSegment selects the row the next TriggerPlayback plays.
func (s *Sampler) SetActiveSegment(row int) {
	s.mu.Lock()
	s.active = row
	s.mu.Unlock()
}

// TriggerPlayback starts the active segment at clock time (seconds of output).
// Rows outside the table or outside the recording are ignored.
func (s *Sampler) TriggerPlayback(time float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.active
	if row < 0 || row >= s.table.Len() || row >= len(s.table.Duration) {
		return
	}
	from := int(math.Round(s.table.Position[row] * SampleRate))
	length := int(math.Round(s.table.Duration[row] * SampleRate))
	if avail := s.source.Frames() - from; length > avail {
		length = avail
	}
	if from < 0 || length <= 0 {
		return
	}

	if len(s.voices) >= s.maxVoices {
		copy(s.voices, s.voices[1:])
		s.voices = s.voices[:s.maxVoices-1]
	}
	s.voices = append(s.voices, voice{
		start:  int64(math.Round(time * SampleRate)),
		from:   from,
		length: length,
	})
}

// Voices returns the number of segments currently sounding or scheduled.
func (s *Sampler) Voices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// Reset silences every voice.
func (s *Sampler) Reset() {
	s.mu.Lock()
	s.voices = s.voices[:0]
	s.mu.Unlock()
}

// Mix adds the voices sounding in the frames [frame, frame+len(dst)/2) into dst.
// Finished voices are dropped.
func (s *Sampler) Mix(dst []float64, frame int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(dst) / Channels
	keep := s.voices[:0]
	for _, v := range s.voices {
		for i := 0; i < n; i++ {
			off := int(frame + int64(i) - v.start)
			if off < 0 {
				continue
			}
			if off >= v.length {
				break
			}
			g := s.gain * s.envelope(off, v.length)
			src := (v.from + off) * Channels
			dst[i*2] += float64(s.source.Samples[src]) * g
			dst[i*2+1] += float64(s.source.Samples[src+1]) * g
		}
		if frame+int64(n)-v.start < int64(v.length) {
			keep = append(keep, v)
		}
	}
	s.voices = keep
}

// envelope ramps the first and last fade frames of a segment.
func (s *Sampler) envelope(off, length int) float64 {
	fade := s.fade
	if fade*2 > length {
		fade = length / 2
	}
	if fade <= 0 {
		return 1
	}
	if off < fade {
		return Smoothstep(float64(off) / float64(fade))
	}
	if rem := length - off; rem < fade {
		return Smoothstep(float64(rem) / float64(fade))
	}
	return 1
}
