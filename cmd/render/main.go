// Command render plays a whole piece offline against a scripted energy curve
// and writes the mix to a WAV file.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/satindergrewal/strumjam/internal/audio"
	"github.com/satindergrewal/strumjam/internal/config"
	"github.com/satindergrewal/strumjam/internal/engine"
	"github.com/satindergrewal/strumjam/internal/markers"
	"github.com/satindergrewal/strumjam/internal/transport"
)

func main() {
	cfg := config.Load()

	var (
		backtrackPath = flag.String("backtrack", cfg.BacktrackPath, "backing track")
		guitarPath    = flag.String("guitar", cfg.GuitarPath, "guitar recording")
		markersPath   = flag.String("markers", cfg.MarkersPath, "marker table (.json or .txt)")
		outPath       = flag.String("out", "render.wav", "output WAV file")
		mode          = flag.Int("mode", cfg.Mode, "engine mode 0..2")
		seed          = flag.Uint64("seed", 1, "random seed")
		energySpec    = flag.String("energy", "constant:1", "energy curve: constant:V, sine:P or file:PATH")
		seconds       = flag.Float64("duration", 0, "render length in seconds, 0 renders the whole piece")
	)
	flag.Parse()
	cfg.Mode = *mode

	energy, err := parseCurve(*energySpec)
	if err != nil {
		log.Fatal(err)
	}
	backtrack, err := audio.DecodeFile(*backtrackPath)
	if err != nil {
		log.Fatalf("Load backtrack: %v", err)
	}
	guitar, err := audio.DecodeFile(*guitarPath)
	if err != nil {
		log.Fatalf("Load guitar: %v", err)
	}
	table, err := markers.Load(*markersPath)
	if err != nil {
		log.Fatalf("Load markers: %v", err)
	}

	length := *seconds
	if length <= 0 {
		length = pieceLength(cfg, backtrack.Duration())
	}

	start := time.Now()
	samples, st, err := render(cfg, backtrack, guitar, table, energy, *seed, length)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Create output: %v", err)
	}
	if err := audio.EncodeWAV(f, samples); err != nil {
		f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}

	log.Printf("Rendered %.1fs to %s in %v: %d chords, %d mutes, %d silent beats",
		length, *outPath, time.Since(start).Round(time.Millisecond),
		st.Counts[engine.Chord.String()], st.Counts[engine.Mute.String()], st.Counts[engine.Silence.String()])
}

// pieceLength covers every beat plus a tail for the last segment to ring,
// and never cuts the backtrack short.
func pieceLength(cfg config.Config, backtrack float64) float64 {
	speed := math.Abs(cfg.Speed)
	if speed == 0 {
		speed = 1
	}
	beats := cfg.Offset + float64(cfg.NumBeats)*cfg.Period/speed + 1
	return math.Max(beats, backtrack)
}

// render runs the engine against the mix clock offline. energy is sampled
// once per 20ms frame.
func render(cfg config.Config, backtrack, guitar *audio.Buffer, table markers.Table,
	energy curve, seed uint64, seconds float64) ([]int16, engine.Status, error) {

	sampler := audio.NewSampler(guitar, table, cfg.GuitarGain, cfg.MaxVoices)
	tr := transport.New(cfg.Speed)
	pipeline := audio.NewPipeline(audio.NewTrack(backtrack, cfg.BacktrackGain), sampler, tr)
	pipeline.SetAutoStop(false)

	eng, err := engine.New(engine.Config{
		Mode:     cfg.Mode,
		Offset:   cfg.Offset,
		Period:   cfg.Period,
		NumBeats: cfg.NumBeats,
		Markers:  table,
	}, sampler,
		engine.WithClock(pipeline.Now),
		engine.WithRand(rand.New(rand.NewPCG(seed, seed>>32|seed<<32))),
	)
	if err != nil {
		return nil, engine.Status{}, fmt.Errorf("create engine: %w", err)
	}
	tr.Add(eng, pipeline.Now())
	pipeline.Attach(eng)
	pipeline.Start()

	frames := int(math.Ceil(seconds * audio.SampleRate / audio.FrameSize))
	out := make([]int16, 0, frames*audio.FrameSamples)
	for i := 0; i < frames; i++ {
		eng.OnEnergy(energy(pipeline.Now()))
		out = append(out, pipeline.RenderFrame()...)
	}
	pipeline.Stop()
	return out, eng.Status(), nil
}
