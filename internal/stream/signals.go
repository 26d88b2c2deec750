package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/satindergrewal/strumjam/internal/gesture"
)

// Signal types a client may send.
const (
	SignalEnergy  = "energy"  // value: motion energy in [0, 1]
	SignalScratch = "scratch" // value: raw scratch magnitude
	SignalMove    = "move"    // x, y: pointer position in normalised screen units
	SignalRelease = "release" // pointer lifted
	SignalMotion  = "motion"  // x, y, z: acceleration in m/s²
)

// maxSignalBody bounds a POST /api/signal body.
const maxSignalBody = 64 << 10

// Signal is one gesture message from a client.
type Signal struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Z     float64 `json:"z,omitempty"`
}

// SignalSink consumes decoded signals.
type SignalSink interface {
	HandleSignal(Signal) error
}

// DecodeSignals parses a single signal object or an array of them.
func DecodeSignals(data []byte) ([]Signal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty signal message")
	}
	if data[0] == '[' {
		var sigs []Signal
		if err := json.Unmarshal(data, &sigs); err != nil {
			return nil, fmt.Errorf("decode signals: %w", err)
		}
		return sigs, nil
	}
	var sig Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("decode signal: %w", err)
	}
	return []Signal{sig}, nil
}

// Router feeds signals into the engine: energy directly, scratch through the
// smoothing shaper, motion through the accelerometer normaliser.
type Router struct {
	Energy  func(float64)
	Scratch *gesture.Scratch
	Motion  gesture.Motion

	received atomic.Int64
}

// Received returns how many signals were routed.
func (r *Router) Received() int64 {
	return r.received.Load()
}

// HandleSignal routes one signal. Unknown types and non-finite values are
// rejected without touching the engine.
func (r *Router) HandleSignal(s Signal) error {
	for _, v := range []float64{s.Value, s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("signal %q: non-finite value", s.Type)
		}
	}
	switch s.Type {
	case SignalEnergy:
		if r.Energy != nil {
			r.Energy(s.Value)
		}
	case SignalMotion:
		if r.Energy != nil {
			r.Energy(r.Motion.Energy(s.X, s.Y, s.Z))
		}
	case SignalScratch:
		if r.Scratch != nil {
			r.Scratch.Input(s.Value)
		}
	case SignalMove:
		if r.Scratch != nil {
			r.Scratch.Move(s.X, s.Y)
		}
	case SignalRelease:
		if r.Scratch != nil {
			r.Scratch.Release()
		}
	default:
		return fmt.Errorf("unknown signal type %q", s.Type)
	}
	r.received.Add(1)
	return nil
}

// SignalHandler accepts signals over HTTP POST for clients without WebRTC.
type SignalHandler struct {
	sink SignalSink
}

// NewSignalHandler creates an HTTP handler delivering to sink.
func NewSignalHandler(sink SignalSink) *SignalHandler {
	return &SignalHandler{sink: sink}
}

func (h *SignalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignalBody))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	sigs, err := DecodeSignals(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, s := range sigs {
		if err := h.sink.HandleSignal(s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
