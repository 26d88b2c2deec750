package stream

import (
	"encoding/binary"
	"io"
)

// PCMReader reads a listener's frames as a little-endian 16-bit PCM byte
// stream. Read blocks until a frame arrives and returns io.EOF once the
// listener is unsubscribed.
type PCMReader struct {
	l       *Listener
	pending []byte
}

// NewPCMReader wraps a listener.
func NewPCMReader(l *Listener) *PCMReader {
	return &PCMReader{l: l}
}

func (r *PCMReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.pending) == 0 {
		select {
		case <-r.l.Done():
			return 0, io.EOF
		case frame, ok := <-r.l.C:
			if !ok {
				return 0, io.EOF
			}
			r.pending = appendPCM(r.pending[:0], frame)
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func appendPCM(dst []byte, frame []int16) []byte {
	for _, s := range frame {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
