package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/satindergrewal/strumjam/internal/audio"
	"github.com/satindergrewal/strumjam/internal/config"
	"github.com/satindergrewal/strumjam/internal/engine"
	"github.com/satindergrewal/strumjam/internal/gesture"
	"github.com/satindergrewal/strumjam/internal/markers"
	"github.com/satindergrewal/strumjam/internal/speaker"
	"github.com/satindergrewal/strumjam/internal/stream"
	"github.com/satindergrewal/strumjam/internal/transport"
)

// scratchGain maps pointer speed in screen widths per second to scratch level.
const scratchGain = 0.5

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("strumjam starting up...")

	backtrack, err := audio.DecodeFile(cfg.BacktrackPath)
	if err != nil {
		log.Fatalf("Load backtrack: %v", err)
	}
	guitar, err := audio.DecodeFile(cfg.GuitarPath)
	if err != nil {
		log.Fatalf("Load guitar: %v", err)
	}
	table, err := markers.Load(cfg.MarkersPath)
	if err != nil {
		log.Fatalf("Load markers: %v", err)
	}
	log.Printf("Loaded backtrack %.1fs, guitar %.1fs, %d markers",
		backtrack.Duration(), guitar.Duration(), table.Len())

	decisions := make(chan engine.Decision, 64)
	j, err := newJam(cfg, backtrack, guitar, table, decisions)
	if err != nil {
		log.Fatalf("Create session: %v", err)
	}
	defer j.webrtc.Close()

	go j.pipeline.Run(ctx)
	go j.broadcaster.Run(ctx, j.pipeline.Frames())
	go j.publish(decisions)

	if cfg.Speaker {
		spk, err := speaker.Open(j.broadcaster)
		if err != nil {
			log.Printf("Local speaker unavailable: %v", err)
		} else {
			defer spk.Close()
			log.Printf("Playing locally (latency %v)", spk.Latency())
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: j.routes()}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		j.pipeline.Stop()
		server.Close()
	}()

	log.Printf("strumjam live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// newJam wires a session. Every beat decision is offered to decisions
// without blocking; a full channel drops it.
func newJam(cfg config.Config, backtrack, guitar *audio.Buffer, table markers.Table, decisions chan<- engine.Decision) (*jam, error) {
	sampler := audio.NewSampler(guitar, table, cfg.GuitarGain, cfg.MaxVoices)
	tr := transport.New(cfg.Speed)
	pipeline := audio.NewPipeline(audio.NewTrack(backtrack, cfg.BacktrackGain), sampler, tr)

	eng, err := engine.New(engine.Config{
		Mode:     cfg.Mode,
		Offset:   cfg.Offset,
		Period:   cfg.Period,
		NumBeats: cfg.NumBeats,
		Markers:  table,
	}, sampler,
		engine.WithClock(pipeline.Now),
		engine.WithRand(newRand(cfg.Seed)),
		engine.WithDecisionHook(func(d engine.Decision) {
			select {
			case decisions <- d:
			default:
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	tr.Add(eng, pipeline.Now())
	pipeline.Attach(eng)

	router := &stream.Router{
		Energy:  eng.OnEnergy,
		Scratch: gesture.NewScratch(cfg.ScratchTimeConstant, scratchGain, gesture.Monotonic, eng.OnScratch),
		Motion:  gesture.Motion{Range: cfg.MotionRange},
	}
	broadcaster := stream.NewBroadcaster()

	return &jam{
		cfg:         cfg,
		engine:      eng,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		webrtc:      stream.NewWebRTCHandler(broadcaster, router),
		router:      router,
	}, nil
}

// newRand seeds the engine's random source; seed 0 picks one at random.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Printf("Random seed %d", seed)
	return rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
}
