package audio

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satindergrewal/strumjam/internal/transport"
)

// StopFadeFrames is how many 20ms frames the mix takes to fade out on Stop.
const StopFadeFrames = 10

// Performer is started and stopped together with the pipeline.
type Performer interface {
	Start()
	Stop()
}

// Status is the pipeline state for display.
type Status struct {
	Playing           bool    `json:"playing"`
	Clock             float64 `json:"clock"`    // seconds of audio rendered
	Position          float64 `json:"position"` // transport position, seconds
	BacktrackPosition float64 `json:"backtrack_position"`
	BacktrackDuration float64 `json:"backtrack_duration"`
	Voices            int     `json:"voices"`
}

// Pipeline mixes the backtrack and the guitar sampler into 20ms PCM frames.
// The number of frames rendered is the clock every beat is scheduled against.
type Pipeline struct {
	frameCh chan []int16
	frames  atomic.Int64

	backtrack *Track
	sampler   *Sampler
	transport *transport.Transport

	mu         sync.Mutex
	performers []Performer
	playing    bool
	stopping   int // fade-out frames left
	autoStop   bool
}

// NewPipeline creates a stopped pipeline. The sampler is the output of the
// guitar engine; tr drives the engine's beats off this pipeline's clock.
func NewPipeline(backtrack *Track, sampler *Sampler, tr *transport.Transport) *Pipeline {
	return &Pipeline{
		frameCh:   make(chan []int16, 100),
		backtrack: backtrack,
		sampler:   sampler,
		transport: tr,
		autoStop:  true,
	}
}

// Attach registers a performer to start and stop with playback.
func (p *Pipeline) Attach(perf Performer) {
	p.mu.Lock()
	p.performers = append(p.performers, perf)
	p.mu.Unlock()
}

// SetAutoStop controls whether playback stops when the backtrack ends.
func (p *Pipeline) SetAutoStop(enabled bool) {
	p.mu.Lock()
	p.autoStop = enabled
	p.mu.Unlock()
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pipeline) Frames() <-chan []int16 {
	return p.frameCh
}

// Now returns the audio clock in seconds.
func (p *Pipeline) Now() float64 {
	return float64(p.frames.Load()) / SampleRate
}

// Start begins the performance at the current clock: performers start, the
// transport starts at position 0 and the backtrack plays from the top.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopping > 0 {
		p.stopping = 0
		p.sampler.Reset()
	}
	// Holding mu keeps the clock still, so every performer sees the same start time.
	now := p.Now()
	for _, perf := range p.performers {
		perf.Start()
	}
	p.transport.Start(now, 0)
	p.backtrack.Play()
	p.playing = true
	log.Printf("Playback started at %.3fs", now)
}

// Stop ends the performance and fades the mix out.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	if !p.playing {
		return
	}
	p.playing = false
	p.transport.Stop()
	for _, perf := range p.performers {
		perf.Stop()
	}
	p.stopping = StopFadeFrames
	log.Printf("Playback stopped at %.3fs", p.Now())
}

// Playing reports whether a performance is running.
func (p *Pipeline) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Status returns current playback info.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.Now()
	return Status{
		Playing:           p.playing,
		Clock:             now,
		Position:          p.transport.Position(now),
		BacktrackPosition: p.backtrack.Position(),
		BacktrackDuration: p.backtrack.Duration(),
		Voices:            p.sampler.Voices(),
	}
}

// RenderFrame renders the next 20ms frame and advances the clock.
func (p *Pipeline) RenderFrame() []int16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.frames.Load()
	if p.playing {
		// Beats due before the end of this frame trigger now; the sampler
		// places them at their exact sample.
		p.transport.Advance(float64(start+FrameSize) / SampleRate)
	}

	mix := make([]float64, FrameSamples)
	p.backtrack.Mix(mix)
	p.sampler.Mix(mix, start)
	frame := make([]int16, FrameSamples)
	for i, v := range mix {
		frame[i] = clip16(v)
	}

	if p.stopping > 0 {
		frame = FadeOut(frame, float64(StopFadeFrames-p.stopping+1)/StopFadeFrames)
		p.stopping--
		if p.stopping == 0 {
			p.backtrack.Halt()
			p.sampler.Reset()
		}
	}

	p.frames.Add(FrameSize)

	if p.playing && p.autoStop && p.backtrack.Finished() {
		log.Println("Backtrack finished")
		p.stopLocked()
	}
	return frame
}

// Run renders frames at real-time rate until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame := p.RenderFrame()
		select {
		case p.frameCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}
