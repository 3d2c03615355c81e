package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/neurlang/synthparams/phase"
	"github.com/neurlang/synthparams/spectro"
	"github.com/neurlang/synthparams/wave"
)

func main() {
	// Check if the filename argument is provided
	if len(os.Args) < 2 {
		fmt.Println("Usage: tospectro <audio_file> [n_fft] [hop] [seconds]")
		os.Exit(1)
	}
	var filename = os.Args[1]

	mag, meta, err := analyze(filename, os.Args[2:])
	if err != nil {
		fmt.Printf("Error analysing audio: %v\n", err)
		os.Exit(1)
	}
	if err := spectro.WritePNG(filename+".png", mag, spectro.Options{YReverse: true, Log: true}); err != nil {
		fmt.Printf("Error writing spectrogram image: %v\n", err)
		os.Exit(1)
	}
	if err := spectro.WriteHalf(filename+".f16", mag, meta); err != nil {
		fmt.Printf("Error writing spectrogram dump: %v\n", err)
		os.Exit(1)
	}
}

// analyze loads filename at its own sample rate and returns its magnitude
// spectrogram with the geometry towav needs to invert it.
func analyze(filename string, args []string) ([][]float64, spectro.Meta, error) {
	nFFT, hop := 512, 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 2 || n%2 != 0 {
			return nil, spectro.Meta{}, fmt.Errorf("invalid n_fft %q: must be an even number >= 2", args[0])
		}
		nFFT = n
	}
	if len(args) > 1 {
		h, err := strconv.Atoi(args[1])
		if err != nil || h <= 0 {
			return nil, spectro.Meta{}, fmt.Errorf("invalid hop %q", args[1])
		}
		hop = h
	}
	if hop == 0 {
		hop = max(1, nFFT/4)
	}
	seconds := wave.DefaultDuration
	if len(args) > 2 {
		d, err := strconv.ParseFloat(args[2], 64)
		if err != nil || d <= 0 {
			return nil, spectro.Meta{}, fmt.Errorf("invalid duration %q", args[2])
		}
		seconds = d
	}

	samples, rate, err := wave.Load(filename, wave.NativeRate, seconds)
	if err != nil {
		return nil, spectro.Meta{}, err
	}
	return phase.Magnitude(samples, nFFT, hop), spectro.Meta{Hop: hop, SampleRate: rate}, nil
}
