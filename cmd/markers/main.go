// Command markers prepares marker tables for a guitar recording.
//
//	markers convert -in markers.txt -out markers.json
//	markers detect -in guitar.wav -sep 120 -out markers.json
//	markers stats -in markers.json
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/satindergrewal/strumjam/internal/markers"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "convert":
		err = convert(os.Args[2:])
	case "detect":
		err = detect(os.Args[2:])
	case "stats":
		err = stats(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: markers convert|detect|stats [flags]")
}

func convert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "marker table (.txt whitespace columns or .json)")
	out := fs.String("out", "", "output file, stdout if empty; .txt writes columns")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("convert: -in is required")
	}

	t, err := markers.Load(*in)
	if err != nil {
		return err
	}
	if err := write(*out, t); err != nil {
		return err
	}
	log.Printf("Converted %d markers from %s", t.Len(), *in)
	return nil
}

func detect(args []string) error {
	def := markers.DefaultDetectConfig()
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	in := fs.String("in", "", "WAV recording of the guitar take")
	out := fs.String("out", "", "output file, stdout if empty")
	level := fs.Int("level", def.Level, "DWT levels for the energy envelope")
	sepMs := fs.Int("sep", int(def.MinSeparation/time.Millisecond), "minimum onset separation in ms")
	persistence := fs.Float64("persistence", def.Persistence, "drop peaks below this fraction of the strongest")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("detect: -in is required")
	}

	start := time.Now()
	t, err := markers.Detect(*in, markers.DetectConfig{
		Level:         *level,
		MinSeparation: time.Duration(*sepMs) * time.Millisecond,
		Persistence:   *persistence,
	})
	if err != nil {
		return err
	}
	if err := write(*out, t); err != nil {
		return err
	}
	log.Printf("Detected %d onsets in %s (%v); chord and variation columns need annotation",
		t.Len(), *in, time.Since(start).Round(time.Millisecond))
	return nil
}

func stats(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	in := fs.String("in", "", "marker table")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("stats: -in is required")
	}

	t, err := markers.Load(*in)
	if err != nil {
		return err
	}
	counts := markers.BuildIndex(t).Labels()
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, string(l))
	}
	sort.Strings(labels)

	fmt.Fprintf(w, "%d rows, %d playable\n", t.Len(), sum(counts))
	for _, l := range labels {
		fmt.Fprintf(w, "%-10s %d\n", l, counts[markers.Label(l)])
	}
	if counts[markers.Mute] == 0 {
		fmt.Fprintln(w, "warning: no mute segments")
	}
	return nil
}

func sum(counts map[markers.Label]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func write(path string, t markers.Table) error {
	if path == "" {
		return markers.EncodeJSON(os.Stdout, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		err = markers.WriteTable(f, t)
	} else {
		err = markers.EncodeJSON(f, t)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
