package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/satindergrewal/strumjam/internal/audio"
	"gopkg.in/hraban/opus.v2"
)

// SignalChannel is the label of the data channel clients send gestures on.
const SignalChannel = "signals"

type peer struct {
	id   string
	pc   *webrtc.PeerConnection
	dc   *webrtc.DataChannel // nil until the client opens the signal channel
	done chan struct{}       // closed when the peer is removed
}

// WebRTCHandler serves WebRTC SDP negotiation: the mix goes out as Opus, and
// gesture signals come back on the "signals" data channel.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	sink        SignalSink

	mu    sync.Mutex
	peers map[string]*peer
}

// NewWebRTCHandler creates a WebRTC stream handler. Signals received from
// peers are delivered to sink; a nil sink ignores them.
func NewWebRTCHandler(b *Broadcaster, sink SignalSink) *WebRTCHandler {
	return &WebRTCHandler{
		broadcaster: b,
		sink:        sink,
		peers:       make(map[string]*peer),
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}
	// Register first: the connection can fail while ICE is still gathering.
	p := h.addPeer(pc)
	pc.OnConnectionStateChange(h.onState(p))
	fail := func(msg string, code int) {
		h.hangUp(p)
		http.Error(w, msg, code)
	}

	audioTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"strumjam",
	)
	if err != nil {
		fail("create audio track failed", http.StatusInternalServerError)
		return
	}
	if _, err := pc.AddTrack(audioTrack); err != nil {
		fail("add track failed", http.StatusInternalServerError)
		return
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != SignalChannel {
			log.Printf("WebRTC peer %s: ignoring data channel %q", p.id, dc.Label())
			return
		}
		dc.OnOpen(func() {
			h.mu.Lock()
			p.dc = dc
			h.mu.Unlock()
			log.Printf("WebRTC peer %s: signal channel open", p.id)
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			h.receive(p, msg.Data)
		})
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		fail("set remote description failed", http.StatusBadRequest)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		fail("create answer failed", http.StatusInternalServerError)
		return
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		fail("set local description failed", http.StatusInternalServerError)
		return
	}

	// Wait for ICE gathering to complete
	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-r.Context().Done():
		h.hangUp(p)
		return
	}
	if !h.registered(p.id) {
		http.Error(w, "peer connection closed during negotiation", http.StatusServiceUnavailable)
		return
	}

	log.Printf("WebRTC peer %s connected (total: %d)", p.id, h.PeerCount())

	// Stream audio in background
	go h.streamToPeer(p, audioTrack)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Peer-Id", p.id)
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

func (h *WebRTCHandler) receive(p *peer, data []byte) {
	if h.sink == nil {
		return
	}
	sigs, err := DecodeSignals(data)
	if err != nil {
		log.Printf("WebRTC peer %s: %v", p.id, err)
		return
	}
	for _, s := range sigs {
		if err := h.sink.HandleSignal(s); err != nil {
			log.Printf("WebRTC peer %s: %v", p.id, err)
		}
	}
}

// Publish sends a text message to every peer with an open signal channel.
func (h *WebRTCHandler) Publish(msg []byte) {
	h.mu.Lock()
	var open []*webrtc.DataChannel
	for _, p := range h.peers {
		if p.dc != nil && p.dc.ReadyState() == webrtc.DataChannelStateOpen {
			open = append(open, p.dc)
		}
	}
	h.mu.Unlock()

	for _, dc := range open {
		if err := dc.SendText(string(msg)); err != nil {
			log.Printf("WebRTC: publish failed: %v", err)
		}
	}
}

// Close hangs up every peer.
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[string]*peer)
	h.mu.Unlock()
	for _, p := range peers {
		close(p.done)
		p.pc.Close()
	}
}

func (h *WebRTCHandler) streamToPeer(p *peer, track *webrtc.TrackLocalStaticSample) {
	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		log.Printf("WebRTC: opus encoder error: %v", err)
		return
	}
	enc.SetBitrate(128000)

	opusBuf := make([]byte, 4000)

	for {
		select {
		case <-listener.Done():
			return
		case <-p.done:
			return
		case frame, ok := <-listener.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, opusBuf)
			if err != nil {
				log.Printf("WebRTC: opus encode error: %v", err)
				continue
			}
			if err := track.WriteSample(media.Sample{
				Data:     opusBuf[:n],
				Duration: audio.FrameDuration,
			}); err != nil {
				return
			}
		}
	}
}

func (h *WebRTCHandler) addPeer(pc *webrtc.PeerConnection) *peer {
	p := &peer{id: uuid.NewString(), pc: pc, done: make(chan struct{})}
	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()
	return p
}

func (h *WebRTCHandler) registered(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.peers[id]
	return ok
}

// onState removes the peer once its connection fails or closes.
func (h *WebRTCHandler) onState(p *peer) func(webrtc.PeerConnectionState) {
	return func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			if h.hangUp(p) {
				log.Printf("WebRTC peer %s disconnected (remaining: %d)", p.id, h.PeerCount())
			}
		}
	}
}

// hangUp removes the peer and closes its connection. It reports whether the
// peer was still registered.
func (h *WebRTCHandler) hangUp(p *peer) bool {
	if !h.removePeer(p.id) {
		return false
	}
	p.pc.Close()
	return true
}

// removePeer reports whether the peer was still registered.
func (h *WebRTCHandler) removePeer(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[id]; !ok {
		return false
	}
	close(h.peers[id].done)
	delete(h.peers, id)
	return true
}
