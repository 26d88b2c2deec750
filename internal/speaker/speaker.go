// Package speaker plays the broadcast mix on the local audio device.
package speaker

import (
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/satindergrewal/strumjam/internal/audio"
	"github.com/satindergrewal/strumjam/internal/stream"
)

// bufferFrames keeps local latency near 100ms.
const bufferFrames = 5

var (
	contextOnce  sync.Once
	audioContext *ebitaudio.Context
)

// sharedContext returns the process-wide audio context; ebiten allows one.
func sharedContext() *ebitaudio.Context {
	contextOnce.Do(func() {
		audioContext = ebitaudio.NewContext(audio.SampleRate)
	})
	return audioContext
}

// Speaker subscribes to a broadcaster and plays every frame.
type Speaker struct {
	broadcaster *stream.Broadcaster
	listener    *stream.Listener
	player      *ebitaudio.Player
}

// Open starts local playback of b.
func Open(b *stream.Broadcaster) (*Speaker, error) {
	l := b.SubscribeBuffered(bufferFrames)
	pl, err := sharedContext().NewPlayer(stream.NewPCMReader(l))
	if err != nil {
		b.Unsubscribe(l)
		return nil, fmt.Errorf("open speaker: %w", err)
	}
	pl.SetBufferSize(bufferFrames * audio.FrameDuration)
	pl.Play()
	return &Speaker{broadcaster: b, listener: l, player: pl}, nil
}

// Latency is the audio buffered between the mix and the device.
func (s *Speaker) Latency() time.Duration {
	return bufferFrames * audio.FrameDuration
}

// Close stops playback.
func (s *Speaker) Close() error {
	s.broadcaster.Unsubscribe(s.listener)
	s.player.Pause()
	return s.player.Close()
}
