package stream

import (
	"context"
	"testing"
	"time"
)

func drain(l *Listener) [][]int16 {
	var frames [][]int16
	for {
		select {
		case f := <-l.C:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	if st := b.Stats(); st.Listeners != 0 || st.Frames != 0 || st.Dropped != 0 {
		t.Errorf("new broadcaster Stats() = %+v, want zero", st)
	}

	l1 := b.Subscribe()
	l2 := b.SubscribeBuffered(4)
	if b.ListenerCount() != 2 {
		t.Errorf("ListenerCount() = %d, want 2", b.ListenerCount())
	}
	if cap(l1.C) != DefaultListenerBuffer || cap(l2.C) != 4 {
		t.Errorf("buffers = %d and %d, want %d and 4", cap(l1.C), cap(l2.C), DefaultListenerBuffer)
	}

	b.Unsubscribe(l1)
	select {
	case <-l1.Done():
	default:
		t.Error("Done() not closed after Unsubscribe")
	}
	b.Unsubscribe(l1) // twice is harmless
	if b.ListenerCount() != 1 {
		t.Errorf("ListenerCount() = %d, want 1", b.ListenerCount())
	}

	b.Broadcast([]int16{1})
	if len(l1.C) != 0 {
		t.Error("unsubscribed listener still receives frames")
	}
	b.Unsubscribe(l2)
}

func TestSubscribeBufferedMinimum(t *testing.T) {
	b := NewBroadcaster()
	for _, size := range []int{0, -3} {
		if l := b.SubscribeBuffered(size); cap(l.C) != 1 {
			t.Errorf("SubscribeBuffered(%d) cap = %d, want 1", size, cap(l.C))
		}
	}
}

func TestBroadcastFanOut(t *testing.T) {
	b := NewBroadcaster()
	listeners := make([]*Listener, 4)
	for i := range listeners {
		listeners[i] = b.Subscribe()
	}

	b.Broadcast([]int16{42, -42})
	b.Broadcast([]int16{7, -7})

	for i, l := range listeners {
		got := drain(l)
		if len(got) != 2 || got[0][0] != 42 || got[1][1] != -7 {
			t.Errorf("listener %d got %v, want both frames in order", i, got)
		}
	}
	if st := b.Stats(); st.Frames != 2 || st.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 2 frames, 0 dropped", st)
	}
}

func TestBroadcastDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster()
	small := b.SubscribeBuffered(2)
	big := b.Subscribe()

	for i := 0; i < 5; i++ {
		b.Broadcast([]int16{int16(i)})
	}

	st := b.Stats()
	if st.Listeners != 2 || st.Frames != 5 || st.Dropped != 3 {
		t.Errorf("Stats() = %+v, want 2 listeners, 5 frames, 3 dropped", st)
	}
	if got := drain(small); len(got) != 2 || got[0][0] != 0 || got[1][0] != 1 {
		t.Errorf("small listener kept %v, want the two oldest frames", got)
	}
	if got := drain(big); len(got) != 5 {
		t.Errorf("big listener got %d frames, want 5", len(got))
	}
}

func TestRunForwardsAndStops(t *testing.T) {
	tests := []struct {
		name string
		stop func(cancel context.CancelFunc, source chan []int16)
	}{
		{"context cancel", func(cancel context.CancelFunc, _ chan []int16) { cancel() }},
		{"source closed", func(_ context.CancelFunc, source chan []int16) { close(source) }},
	}
	for _, tt := range tests {
		b := NewBroadcaster()
		l := b.Subscribe()
		ctx, cancel := context.WithCancel(context.Background())
		source := make(chan []int16, 1)

		done := make(chan struct{})
		go func() {
			b.Run(ctx, source)
			close(done)
		}()

		source <- []int16{100, 200}
		select {
		case got := <-l.C:
			if got[0] != 100 || got[1] != 200 {
				t.Errorf("%s: forwarded %v, want [100 200]", tt.name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: timeout waiting for frame", tt.name)
		}

		tt.stop(cancel, source)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: Run did not return", tt.name)
		}
		cancel()
		b.Unsubscribe(l)
	}
}
