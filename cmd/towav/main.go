package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/neurlang/synthparams/infer"
	"github.com/neurlang/synthparams/phase"
	"github.com/neurlang/synthparams/spectro"
	"github.com/neurlang/synthparams/wave"
)

func main() {
	// Check if the filename argument is provided
	if len(os.Args) < 2 {
		fmt.Println("Usage: towav <f16_file> [sample_rate] [iterations]")
		os.Exit(1)
	}
	var filename = os.Args[1]

	mag, meta, err := spectro.ReadHalf(filename)
	if err != nil {
		fmt.Printf("Error reading spectrogram: %v\n", err)
		os.Exit(1)
	}
	rate, p, err := settings(meta, os.Args[2:])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	audio, err := infer.Reconstruct(p, mag)
	if err != nil {
		fmt.Printf("Error generating wave from spectrogram: %v\n", err)
		os.Exit(1)
	}
	if err := wave.Write(filename+".wav", audio, rate); err != nil {
		fmt.Printf("Error writing wave: %v\n", err)
		os.Exit(1)
	}
}

// settings resolves the output rate and the reconstruction parameters. The
// dump header wins over the defaults, the arguments win over both.
func settings(meta spectro.Meta, args []string) (int, *phase.Phase, error) {
	rate := wave.DefaultSampleRate
	if meta.SampleRate > 0 {
		rate = meta.SampleRate
	}
	if len(args) > 0 {
		r, err := strconv.Atoi(args[0])
		if err != nil || r <= 0 {
			return 0, nil, fmt.Errorf("invalid sample rate %q", args[0])
		}
		rate = r
	}

	var p = phase.NewPhase()
	p.Hop = meta.Hop
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return 0, nil, fmt.Errorf("invalid iteration count %q", args[1])
		}
		p.Iterations = n
	}
	return rate, p, nil
}
