package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/satindergrewal/strumjam/internal/audio"
	"github.com/satindergrewal/strumjam/internal/config"
	"github.com/satindergrewal/strumjam/internal/engine"
	"github.com/satindergrewal/strumjam/internal/stream"
	"github.com/satindergrewal/strumjam/internal/web"
)

// jam is one hosted session: the engine, the mix and its listeners.
type jam struct {
	cfg         config.Config
	engine      *engine.Engine
	pipeline    *audio.Pipeline
	broadcaster *stream.Broadcaster
	webrtc      *stream.WebRTCHandler
	router      *stream.Router
}

// beatMessage is pushed to clients on the signal channel after every beat.
type beatMessage struct {
	Type string `json:"type"`
	engine.Decision
}

func (j *jam) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})

	// Audio streams and signals
	mux.Handle("/stream", stream.NewHTTPHandler(j.broadcaster, stream.MP3Config{
		Bitrate:      j.cfg.MP3Bitrate,
		MaxListeners: j.cfg.MaxListeners,
		Describe:     j.describe,
	}))
	mux.Handle("/offer", j.webrtc)
	mux.Handle("/api/signal", stream.NewSignalHandler(j.router))

	mux.HandleFunc("/api/status", j.handleStatus)
	mux.HandleFunc("/api/start", j.handleStart)
	mux.HandleFunc("/api/stop", j.handleStop)
	mux.HandleFunc("/api/mode", j.handleMode)
	return mux
}

// describe summarises the session for stream listeners.
func (j *jam) describe() string {
	st := j.engine.Status()
	state := "stopped"
	if st.Running {
		state = "playing"
	}
	return fmt.Sprintf("%s, mode %d, %d beats of %dms", state, st.Mode, j.cfg.NumBeats, int(math.Round(j.cfg.Period*1000)))
}

func (j *jam) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"engine":           j.engine.Status(),
		"playback":         j.pipeline.Status(),
		"stream":           j.broadcaster.Stats(),
		"webrtc_listeners": j.webrtc.PeerCount(),
		"signals":          j.router.Received(),
		"config": map[string]any{
			"period":    j.cfg.Period,
			"offset":    j.cfg.Offset,
			"num_beats": j.cfg.NumBeats,
			"speed":     j.cfg.Speed,
		},
	})
}

func (j *jam) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	j.pipeline.Start()
	writeJSON(w, map[string]any{"ok": true, "playing": true})
}

func (j *jam) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	j.pipeline.Stop()
	writeJSON(w, map[string]any{"ok": true, "playing": false})
}

func (j *jam) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Mode *int `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := j.engine.ChangeMode(*req.Mode); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("Mode changed to %d", *req.Mode)
	writeJSON(w, map[string]any{"ok": true, "mode": *req.Mode, "params": j.engine.Params()})
}

// publish forwards beat decisions to connected clients until decisions closes.
func (j *jam) publish(decisions <-chan engine.Decision) {
	for d := range decisions {
		msg, err := json.Marshal(beatMessage{Type: "beat", Decision: d})
		if err != nil {
			log.Printf("Encode beat %d: %v", d.Beat, err)
			continue
		}
		j.webrtc.Publish(msg)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
