package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/neurlang/synthparams/wave"
)

func TestAnalyzeRecordsGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	const sr = 8000
	tone := make([]float64, sr/2)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sr)
	}
	if err := wave.Write(path, tone, sr); err != nil {
		t.Fatal(err)
	}

	mag, meta, err := analyze(path, []string{"256", "32", "0.5"})
	if err != nil {
		t.Fatal(err)
	}
	if meta.Hop != 32 || meta.SampleRate != sr {
		t.Fatalf("meta = %+v, want hop 32 at %d Hz", meta, sr)
	}
	if len(mag) != 129 || len(mag[0]) != 1+len(tone)/32 {
		t.Fatalf("spectrogram is %dx%d", len(mag), len(mag[0]))
	}
}

func TestAnalyzeRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.wav")
	for _, args := range [][]string{{"7"}, {"512", "0"}, {"512", "128", "-1"}, nil} {
		if _, _, err := analyze(path, args); err == nil {
			t.Errorf("analyze(%q) accepted", args)
		}
	}
}
