package config

import (
	"math"
	"os"
	"strconv"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return fallback
}

// envPositive is envFloat restricted to values above zero.
func envPositive(key string, fallback float64) float64 {
	if f := envFloat(key, fallback); f > 0 {
		return f
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port    int
	Speaker bool // also play the mix on the local audio device

	// MP3 stream
	MP3Bitrate   int // kbit/s
	MaxListeners int // concurrent /stream listeners, 0 for no limit

	// Recordings
	BacktrackPath string
	GuitarPath    string
	MarkersPath   string // .json or whitespace .txt marker table

	// Beat grid
	Mode     int
	Offset   float64 // seconds from session start to beat 0
	Period   float64 // seconds per beat
	NumBeats int
	Speed    float64 // transport speed, 1 = real time

	// Signals
	ScratchTimeConstant float64 // low-pass time constant, seconds
	MotionRange         float64 // m/s² above gravity that maps to energy 1

	// Mix
	BacktrackGain float64
	GuitarGain    float64
	MaxVoices     int

	Seed uint64 // 0 picks a random seed
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:    envInt("JAM_PORT", 8080),
		Speaker: envBool("JAM_SPEAKER", false),

		MP3Bitrate:   envInt("JAM_MP3_BITRATE", 192),
		MaxListeners: envInt("JAM_MAX_LISTENERS", 0),

		BacktrackPath: envStr("JAM_BACKTRACK", "assets/backtrack.wav"),
		GuitarPath:    envStr("JAM_GUITAR", "assets/guitar.wav"),
		MarkersPath:   envStr("JAM_MARKERS", "assets/markers.json"),

		Mode:     envInt("JAM_MODE", 1),
		Offset:   envFloat("JAM_OFFSET", 0),
		Period:   envPositive("JAM_PERIOD", 0.15),
		NumBeats: envInt("JAM_NUM_BEATS", 200),
		Speed:    envFloat("JAM_SPEED", 1),

		ScratchTimeConstant: envPositive("JAM_SCRATCH_TIME_CONSTANT", 0.05),
		MotionRange:         envPositive("JAM_MOTION_RANGE", 9.81),

		BacktrackGain: envFloat("JAM_BACKTRACK_GAIN", 0.8),
		GuitarGain:    envFloat("JAM_GUITAR_GAIN", 1.0),
		MaxVoices:     envInt("JAM_MAX_VOICES", 8),

		Seed: uint64(envInt("JAM_SEED", 0)),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
