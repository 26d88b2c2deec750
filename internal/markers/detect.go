package markers

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/goccmack/godsp"
	"github.com/goccmack/godsp/dwt"
)

// DetectConfig controls onset detection over a recording.
type DetectConfig struct {
	Level         int           // DWT scales; the envelope is 2^Level times shorter than the signal
	MinSeparation time.Duration // minimum distance between two onsets
	Persistence   float64       // peaks below this fraction of the most persistent one are dropped
}

// DefaultDetectConfig matches the analysis used for the reference guitar take.
func DefaultDetectConfig() DetectConfig {
	return DetectConfig{Level: 4, MinSeparation: 120 * time.Millisecond, Persistence: 0.05}
}

// Detect finds strum onsets in a WAV recording and returns a candidate table.
// Every row starts as a high mute (chord 0, variation 1) for manual annotation.
func Detect(path string, cfg DetectConfig) (Table, error) {
	if cfg.Level < 1 || cfg.Level > 16 {
		return Table{}, fmt.Errorf("dwt level %d out of range 1-16", cfg.Level)
	}
	if cfg.Persistence < 0 || cfg.Persistence > 1 {
		return Table{}, fmt.Errorf("persistence %v out of range 0-1", cfg.Persistence)
	}
	channels, fs, err := readWav(path)
	if err != nil {
		return Table{}, err
	}
	if len(channels) == 0 || fs <= 0 {
		return Table{}, fmt.Errorf("read %s: no audio", path)
	}
	scale := 1 << cfg.Level
	if len(channels[0]) < 2*scale {
		return Table{}, fmt.Errorf("read %s: %d samples is too short for level %d", path, len(channels[0]), cfg.Level)
	}
	sep := int(cfg.MinSeparation.Milliseconds()) * fs / (scale * 1000)
	if sep <= 0 {
		return Table{}, fmt.Errorf("separation %v too small for %d Hz at level %d", cfg.MinSeparation, fs, cfg.Level)
	}

	// Energy envelope: sum of the absolute, downsampled detail coefficients
	// over all scales, normalised to its mean.
	db4 := dwt.Daubechies4(channels[0], cfg.Level)
	env := godsp.SumVectors(godsp.DownSampleAll(godsp.AbsAll(db4.GetCoefficients())))
	if avg := godsp.Average(env); avg > 0 {
		env = godsp.DivS(env, avg)
	}

	pks := godsp.GetPeaks(env).GetIndices(cfg.Persistence)
	if len(pks) == 0 {
		// a lone peak has no finite persistence to compare against
		pks = []int{argmax(env)}
	}
	total := float64(len(channels[0])) / float64(fs)
	return tableFromPeaks(pks, env, sep, float64(scale)/float64(fs), total), nil
}

// readWav turns the panics of godsp.ReadWavFile into errors.
func readWav(path string) (channels [][]float64, fs int, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, 0, fmt.Errorf("read wav: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read %s: %v", path, r)
		}
	}()
	channels, fs = godsp.ReadWavFile(path)
	return channels, fs, nil
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}

// separate keeps at most one peak per sep indices, the highest of any
// closer run. pks must be sorted.
func separate(pks []int, env []float64, sep int) []int {
	var kept []int
	for _, pk := range pks {
		if n := len(kept); n > 0 && pk-kept[n-1] < sep {
			if env[pk] > env[kept[n-1]] {
				kept[n-1] = pk
			}
			continue
		}
		kept = append(kept, pk)
	}
	return kept
}

// tableFromPeaks turns envelope peak indices into marker rows. Each segment
// lasts until the next onset. Strength is the tercile of the peak height:
// the loudest third gets 2 and is excluded from random reuse.
func tableFromPeaks(pks []int, env []float64, sep int, secondsPerIndex, total float64) Table {
	pks = append([]int(nil), pks...)
	sort.Ints(pks)
	pks = separate(pks, env, sep)

	byHeight := append([]int(nil), pks...)
	sort.SliceStable(byHeight, func(i, j int) bool { return env[byHeight[i]] < env[byHeight[j]] })
	strength := make(map[int]int, len(pks))
	for rank, pk := range byHeight {
		strength[pk] = rank * 3 / len(byHeight)
	}

	var t Table
	for i, pk := range pks {
		start := float64(pk) * secondsPerIndex
		end := total
		if i+1 < len(pks) {
			end = float64(pks[i+1]) * secondsPerIndex
		}
		t.Append(start, end-start, strength[pk], 0, VariationHigh)
	}
	return t
}
