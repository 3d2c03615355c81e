package main

import (
	"testing"

	"github.com/neurlang/synthparams/phase"
	"github.com/neurlang/synthparams/spectro"
	"github.com/neurlang/synthparams/wave"
)

func TestSettings(t *testing.T) {
	tests := []struct {
		name  string
		meta  spectro.Meta
		args  []string
		rate  int
		shift int
		iters int
	}{
		{"defaults", spectro.Meta{}, nil, wave.DefaultSampleRate, 128, phase.DefaultIterations},
		{"from dump", spectro.Meta{Hop: 64, SampleRate: 44100}, nil, 44100, 64, phase.DefaultIterations},
		{"arguments win", spectro.Meta{Hop: 64, SampleRate: 44100}, []string{"22050", "3"}, 22050, 64, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, p, err := settings(tt.meta, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if rate != tt.rate || p.FrameShift(512) != tt.shift || p.Iterations != tt.iters {
				t.Fatalf("rate %d, shift %d, iterations %d", rate, p.FrameShift(512), p.Iterations)
			}
		})
	}
}

func TestSettingsRejects(t *testing.T) {
	for _, args := range [][]string{{"fast"}, {"0"}, {"16384", "-1"}} {
		if _, _, err := settings(spectro.Meta{}, args); err == nil {
			t.Errorf("settings(%q) accepted", args)
		}
	}
}
