package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"JAM_PORT", "JAM_SPEAKER", "JAM_BACKTRACK", "JAM_GUITAR", "JAM_MARKERS",
		"JAM_MODE", "JAM_OFFSET", "JAM_PERIOD", "JAM_NUM_BEATS", "JAM_SPEED",
		"JAM_SCRATCH_TIME_CONSTANT", "JAM_MOTION_RANGE", "JAM_BACKTRACK_GAIN",
		"JAM_GUITAR_GAIN", "JAM_MAX_VOICES", "JAM_SEED",
		"JAM_MP3_BITRATE", "JAM_MAX_LISTENERS",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Speaker {
		t.Error("Speaker = true, want false")
	}
	if cfg.BacktrackPath != "assets/backtrack.wav" {
		t.Errorf("BacktrackPath = %q, want default", cfg.BacktrackPath)
	}
	if cfg.GuitarPath != "assets/guitar.wav" {
		t.Errorf("GuitarPath = %q, want default", cfg.GuitarPath)
	}
	if cfg.MarkersPath != "assets/markers.json" {
		t.Errorf("MarkersPath = %q, want default", cfg.MarkersPath)
	}
	if cfg.Mode != 1 {
		t.Errorf("Mode = %d, want 1", cfg.Mode)
	}
	if cfg.Offset != 0 {
		t.Errorf("Offset = %f, want 0", cfg.Offset)
	}
	if cfg.Period != 0.15 {
		t.Errorf("Period = %f, want 0.15", cfg.Period)
	}
	if cfg.NumBeats != 200 {
		t.Errorf("NumBeats = %d, want 200", cfg.NumBeats)
	}
	if cfg.Speed != 1 {
		t.Errorf("Speed = %f, want 1", cfg.Speed)
	}
	if cfg.ScratchTimeConstant != 0.05 {
		t.Errorf("ScratchTimeConstant = %f, want 0.05", cfg.ScratchTimeConstant)
	}
	if cfg.MotionRange != 9.81 {
		t.Errorf("MotionRange = %f, want 9.81", cfg.MotionRange)
	}
	if cfg.BacktrackGain != 0.8 {
		t.Errorf("BacktrackGain = %f, want 0.8", cfg.BacktrackGain)
	}
	if cfg.GuitarGain != 1.0 {
		t.Errorf("GuitarGain = %f, want 1.0", cfg.GuitarGain)
	}
	if cfg.MaxVoices != 8 {
		t.Errorf("MaxVoices = %d, want 8", cfg.MaxVoices)
	}
	if cfg.Seed != 0 {
		t.Errorf("Seed = %d, want 0", cfg.Seed)
	}
	if cfg.MP3Bitrate != 192 || cfg.MaxListeners != 0 {
		t.Errorf("MP3Bitrate, MaxListeners = %d, %d, want 192, 0", cfg.MP3Bitrate, cfg.MaxListeners)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JAM_PORT", "3000")
	t.Setenv("JAM_SPEAKER", "1")
	t.Setenv("JAM_BACKTRACK", "/srv/back.mp3")
	t.Setenv("JAM_GUITAR", "/srv/guitar.flac")
	t.Setenv("JAM_MARKERS", "/srv/markers.txt")
	t.Setenv("JAM_MODE", "2")
	t.Setenv("JAM_OFFSET", "0.25")
	t.Setenv("JAM_PERIOD", "0.2")
	t.Setenv("JAM_NUM_BEATS", "64")
	t.Setenv("JAM_SPEED", "-1")
	t.Setenv("JAM_SCRATCH_TIME_CONSTANT", "0.1")
	t.Setenv("JAM_MOTION_RANGE", "5")
	t.Setenv("JAM_BACKTRACK_GAIN", "0.5")
	t.Setenv("JAM_GUITAR_GAIN", "1.5")
	t.Setenv("JAM_MAX_VOICES", "16")
	t.Setenv("JAM_SEED", "42")
	t.Setenv("JAM_MP3_BITRATE", "128")
	t.Setenv("JAM_MAX_LISTENERS", "4")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if !cfg.Speaker {
		t.Error("Speaker = false, want true")
	}
	if cfg.BacktrackPath != "/srv/back.mp3" {
		t.Errorf("BacktrackPath = %q, want env override", cfg.BacktrackPath)
	}
	if cfg.GuitarPath != "/srv/guitar.flac" {
		t.Errorf("GuitarPath = %q, want env override", cfg.GuitarPath)
	}
	if cfg.MarkersPath != "/srv/markers.txt" {
		t.Errorf("MarkersPath = %q, want env override", cfg.MarkersPath)
	}
	if cfg.Mode != 2 {
		t.Errorf("Mode = %d, want 2", cfg.Mode)
	}
	if cfg.Offset != 0.25 {
		t.Errorf("Offset = %f, want 0.25", cfg.Offset)
	}
	if cfg.Period != 0.2 {
		t.Errorf("Period = %f, want 0.2", cfg.Period)
	}
	if cfg.NumBeats != 64 {
		t.Errorf("NumBeats = %d, want 64", cfg.NumBeats)
	}
	if cfg.Speed != -1 {
		t.Errorf("Speed = %f, want -1", cfg.Speed)
	}
	if cfg.ScratchTimeConstant != 0.1 {
		t.Errorf("ScratchTimeConstant = %f, want 0.1", cfg.ScratchTimeConstant)
	}
	if cfg.MotionRange != 5 {
		t.Errorf("MotionRange = %f, want 5", cfg.MotionRange)
	}
	if cfg.BacktrackGain != 0.5 {
		t.Errorf("BacktrackGain = %f, want 0.5", cfg.BacktrackGain)
	}
	if cfg.GuitarGain != 1.5 {
		t.Errorf("GuitarGain = %f, want 1.5", cfg.GuitarGain)
	}
	if cfg.MaxVoices != 16 {
		t.Errorf("MaxVoices = %d, want 16", cfg.MaxVoices)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.MP3Bitrate != 128 || cfg.MaxListeners != 4 {
		t.Errorf("MP3Bitrate, MaxListeners = %d, %d, want 128, 4", cfg.MP3Bitrate, cfg.MaxListeners)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("JAM_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvFloatInvalidFallsBack(t *testing.T) {
	t.Setenv("JAM_PERIOD", "fast")
	cfg := Load()
	if cfg.Period != 0.15 {
		t.Errorf("Invalid float env should fallback to default: got %f, want 0.15", cfg.Period)
	}
}

func TestPositiveFloatsFallBack(t *testing.T) {
	for _, v := range []string{"0", "-0.2", "NaN", "Inf", "-Inf"} {
		t.Setenv("JAM_SCRATCH_TIME_CONSTANT", v)
		t.Setenv("JAM_PERIOD", v)
		t.Setenv("JAM_MOTION_RANGE", v)
		cfg := Load()
		if cfg.ScratchTimeConstant != 0.05 {
			t.Errorf("JAM_SCRATCH_TIME_CONSTANT=%s: got %v, want 0.05", v, cfg.ScratchTimeConstant)
		}
		if cfg.Period != 0.15 {
			t.Errorf("JAM_PERIOD=%s: got %v, want 0.15", v, cfg.Period)
		}
		if cfg.MotionRange != 9.81 {
			t.Errorf("JAM_MOTION_RANGE=%s: got %v, want 9.81", v, cfg.MotionRange)
		}
	}
}

func TestEnvFloatRejectsNonFinite(t *testing.T) {
	t.Setenv("JAM_SPEED", "NaN")
	if got := Load().Speed; got != 1 {
		t.Errorf("JAM_SPEED=NaN: got %v, want 1", got)
	}
	t.Setenv("JAM_SPEED", "-1")
	if got := Load().Speed; got != -1 {
		t.Errorf("JAM_SPEED=-1: got %v, want -1", got)
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"maybe", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("JAM_SPEAKER", tt.value)
		if got := Load().Speaker; got != tt.want {
			t.Errorf("JAM_SPEAKER=%q: Speaker = %v, want %v", tt.value, got, tt.want)
		}
	}
}
