package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultListenerBuffer is ~3 seconds of 20ms frames.
const DefaultListenerBuffer = 150

// Broadcaster fans out PCM frames from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}

	frames  atomic.Int64
	dropped atomic.Int64
}

// Listener receives PCM frames from the broadcaster.
type Listener struct {
	C    chan []int16 // buffered channel of 20ms PCM frames
	done chan struct{}
	once sync.Once
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Stats counts broadcast activity since start.
type Stats struct {
	Listeners int   `json:"listeners"`
	Frames    int64 `json:"frames"`
	Dropped   int64 `json:"dropped"` // frame deliveries skipped for slow listeners
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener with the default buffer.
func (b *Broadcaster) Subscribe() *Listener {
	return b.SubscribeBuffered(DefaultListenerBuffer)
}

// SubscribeBuffered registers a listener holding at most size pending frames.
// Local playback wants a short buffer to keep latency low.
func (b *Broadcaster) SubscribeBuffered(size int) *Listener {
	if size < 1 {
		size = 1
	}
	l := &Listener{
		C:    make(chan []int16, size),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop. Calling it twice is harmless.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	l.once.Do(func() { close(l.done) })
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Stats returns the listener count and frame counters.
func (b *Broadcaster) Stats() Stats {
	return Stats{
		Listeners: b.ListenerCount(),
		Frames:    b.frames.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Broadcast delivers one frame to every listener.
// Slow listeners get the frame dropped rather than blocking the broadcast.
func (b *Broadcaster) Broadcast(frame []int16) {
	b.frames.Add(1)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners {
		select {
		case l.C <- frame:
		default:
			b.dropped.Add(1)
		}
	}
}

// Run reads frames from source and fans out to all listeners.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.Broadcast(frame)
		}
	}
}
