package stream

import (
	"context"
	"io"
	"log"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/satindergrewal/strumjam/internal/audio"
)

// DefaultMP3Bitrate is the HTTP stream bitrate in kbit/s.
const DefaultMP3Bitrate = 192

// MP3Config configures the listen-only HTTP stream.
type MP3Config struct {
	Bitrate      int // kbit/s, DefaultMP3Bitrate when zero or negative
	MaxListeners int // concurrent broadcast listeners, 0 for no limit

	// Describe returns a one-line summary of the session for the ICY
	// description header. Optional.
	Describe func() string
}

// HTTPHandler serves the jam mix as a chunked MP3 stream, for listeners that
// only want to hear the session. Each connection runs its own FFmpeg encoder
// fed from a broadcast listener.
type HTTPHandler struct {
	broadcaster *Broadcaster
	cfg         MP3Config
}

// NewHTTPHandler creates an HTTP stream handler.
func NewHTTPHandler(b *Broadcaster, cfg MP3Config) *HTTPHandler {
	if cfg.Bitrate <= 0 {
		cfg.Bitrate = DefaultMP3Bitrate
	}
	return &HTTPHandler{broadcaster: b, cfg: cfg}
}

// mp3Args is the FFmpeg command line reading raw frames on stdin and writing MP3.
func mp3Args(bitrate int) []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", strconv.Itoa(bitrate) + "k",
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

// streamHeaders marks the response as an endless, uncached MP3 stream.
func (h *HTTPHandler) streamHeaders(hdr http.Header) {
	hdr.Set("Content-Type", "audio/mpeg")
	hdr.Set("Cache-Control", "no-cache, no-store")
	hdr.Set("Connection", "close")
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("ICY-Name", "strumjam")
	hdr.Set("ICY-Br", strconv.Itoa(h.cfg.Bitrate))
	if h.cfg.Describe != nil {
		hdr.Set("ICY-Description", h.cfg.Describe())
	}
}

// flushWriter pushes every chunk to the client as soon as it is encoded.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.f.Flush()
	return n, err
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if limit := h.cfg.MaxListeners; limit > 0 && h.broadcaster.ListenerCount() >= limit {
		http.Error(w, "listener limit reached", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	cmd := exec.CommandContext(ctx, "ffmpeg", mp3Args(h.cfg.Bitrate)...)
	cmd.Stdin = NewPCMReader(listener)
	cmd.WaitDelay = time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Printf("MP3 stream: stdout pipe error: %v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("MP3 stream: ffmpeg start error: %v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}

	h.streamHeaders(w.Header())
	log.Printf("MP3 listener connected at %dk (total: %d)", h.cfg.Bitrate, h.broadcaster.ListenerCount())

	n, err := io.Copy(flushWriter{w, flusher}, stdout)
	if err != nil && ctx.Err() == nil {
		log.Printf("MP3 stream: %v", err)
	}

	// Ending the listener unblocks the encoder's stdin copy.
	cancel()
	h.broadcaster.Unsubscribe(listener)
	cmd.Wait()
	log.Printf("MP3 listener disconnected after %d bytes", n)
}
