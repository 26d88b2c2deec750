package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// curve is a scripted energy signal over render time in seconds.
type curve func(t float64) float64

// parseCurve reads a curve definition:
//
//	constant:V   V at all times
//	sine:P       0.5 + 0.5·sin(2πt/P), one swell every P seconds
//	file:PATH    "time value" lines, each value held until the next time
func parseCurve(def string) (curve, error) {
	kind, arg, _ := strings.Cut(def, ":")
	switch kind {
	case "constant":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("constant curve: %w", err)
		}
		return func(float64) float64 { return v }, nil
	case "sine":
		p, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("sine curve: %w", err)
		}
		if p <= 0 {
			return nil, fmt.Errorf("sine curve: period must be positive, got %v", p)
		}
		return func(t float64) float64 { return 0.5 + 0.5*math.Sin(2*math.Pi*t/p) }, nil
	case "file":
		return loadCurve(arg)
	default:
		return nil, fmt.Errorf("unknown curve %q (want constant:V, sine:P or file:PATH)", def)
	}
}

type point struct{ t, v float64 }

func loadCurve(path string) (curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curve: %w", err)
	}
	defer f.Close()

	var pts []point
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("curve line %d: want 2 columns, got %d", line, len(fields))
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("curve line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("curve line %d: %w", line, err)
		}
		pts = append(pts, point{t, v})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read curve: %w", err)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("curve %s has no points", path)
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].t < pts[j].t })
	return stepCurve(pts), nil
}

// stepCurve holds each point's value from its time until the next point.
// Before the first point the curve is 0.
func stepCurve(pts []point) curve {
	return func(t float64) float64 {
		i := sort.Search(len(pts), func(i int) bool { return pts[i].t > t })
		if i == 0 {
			return 0
		}
		return pts[i-1].v
	}
}
