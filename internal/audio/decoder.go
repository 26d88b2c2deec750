package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var errNeedsResample = errors.New("sample rate differs from output rate")

// DecodeFile loads an audio file as 48kHz interleaved stereo.
// WAV files at 48kHz are decoded natively; everything else goes through FFmpeg.
func DecodeFile(path string) (*Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		buf, err := DecodeWAV(f)
		f.Close()
		if err == nil {
			return buf, nil
		}
		if !errors.Is(err, errNeedsResample) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		log.Printf("%s: %v, decoding with ffmpeg", path, err)
	}
	return decodeFFmpeg(path)
}

// DecodeWAV reads PCM WAV data at SampleRate, converting mono to stereo and
// any bit depth to 16 bits.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if int(d.SampleRate) != SampleRate {
		return nil, fmt.Errorf("%w: %d Hz", errNeedsResample, d.SampleRate)
	}
	chans := int(d.NumChans)
	if chans < 1 {
		return nil, fmt.Errorf("wav has %d channels", chans)
	}

	depth := int(d.BitDepth)
	frames := len(pcm.Data) / chans
	out := make([]int16, frames*Channels)
	for i := 0; i < frames; i++ {
		l := to16(pcm.Data[i*chans], depth)
		r := l
		if chans > 1 {
			r = to16(pcm.Data[i*chans+1], depth)
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return &Buffer{Samples: out}, nil
}

// to16 rescales one sample of the given bit depth to int16.
func to16(v, depth int) int16 {
	switch {
	case depth == 8:
		return int16((v - 128) << 8) // 8-bit WAV is unsigned
	case depth > 16:
		return int16(v >> (depth - 16))
	default:
		return int16(v)
	}
}

// decodeFFmpeg runs FFmpeg to decode an audio file to raw PCM int16 samples.
func decodeFFmpeg(path string) (*Buffer, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}
	return &Buffer{Samples: samples}, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// EncodeWAV writes interleaved stereo samples as a 16-bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, samples []int16) error {
	enc := wav.NewEncoder(w, SampleRate, BitDepth, Channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
