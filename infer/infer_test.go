package infer

import (
	"errors"
	"math"
	"testing"

	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/arch"
	"github.com/neurlang/synthparams/phase"
)

type fixed struct{ out *tensor.Dense }

func (f fixed) Predict(*tensor.Dense) (*tensor.Dense, error) { return f.out, nil }

func iota4(a, b, c, d int) *tensor.Dense {
	data := make([]float64, a*b*c*d)
	for i := range data {
		data[i] = float64(i)
	}
	return tensor.New(tensor.WithShape(a, b, c, d), tensor.WithBacking(data))
}

func input(n int) *tensor.Dense {
	return tensor.New(tensor.WithShape(n, 1, 8), tensor.WithBacking(make([]float64, n*8)))
}

func TestPredictChannelsFirst(t *testing.T) {
	got, err := Predict(fixed{iota4(1, 3, 4, 5)}, input(1), ChannelsFirst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || len(got[0]) != 5 {
		t.Fatalf("shape = %dx%d, want 4x5", len(got), len(got[0]))
	}
	if got[2][3] != 13 {
		t.Fatalf("[2][3] = %v, want 13", got[2][3])
	}
}

func TestPredictChannelsLast(t *testing.T) {
	got, err := Predict(fixed{iota4(1, 3, 4, 5)}, input(1), ChannelsLast)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || len(got[0]) != 4 {
		t.Fatalf("shape = %dx%d, want 3x4", len(got), len(got[0]))
	}
	if got[1][2] != float64((1*4+2)*5) {
		t.Fatalf("[1][2] = %v", got[1][2])
	}
}

func TestPredictRejectsBatch(t *testing.T) {
	for _, n := range []int{0, 2, 16} {
		_, err := Predict(fixed{iota4(1, 1, 2, 2)}, input(n), ChannelsFirst)
		if !errors.Is(err, arch.ErrShape) {
			t.Errorf("batch %d: err = %v, want ErrShape", n, err)
		}
	}
	if _, err := Predict(fixed{iota4(1, 1, 2, 2)}, nil, ChannelsFirst); !errors.Is(err, arch.ErrShape) {
		t.Errorf("nil batch: err = %v, want ErrShape", err)
	}
}

func TestParseLayout(t *testing.T) {
	for s, want := range map[string]Layout{"channels_first": ChannelsFirst, "channels_last": ChannelsLast, "": ChannelsFirst} {
		got, err := ParseLayout(s)
		if err != nil || got != want {
			t.Errorf("ParseLayout(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseLayout("nchw"); err == nil {
		t.Error("expected error")
	}
}

func TestReconstructPredictionShape(t *testing.T) {
	mag, err := Predict(fixed{iota4(1, 38, 5, 368)}, input(1), ChannelsFirst)
	if err != nil {
		t.Fatal(err)
	}
	y, err := Reconstruct(nil, mag)
	if err != nil {
		t.Fatal(err)
	}
	// five bins give nFFT 8 and hop 2
	if len(y) != 2*(368-1) {
		t.Fatalf("len = %d, want %d", len(y), 2*(368-1))
	}
}

func TestReconstructClamps(t *testing.T) {
	mag := [][]float64{
		{1, math.NaN(), -3},
		{math.Inf(1), 0.5, 0.25},
		{0, -0.1, 2},
	}
	y, err := Reconstruct(&phase.Phase{Iterations: 4}, mag)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d = %v", i, v)
		}
	}
	if !math.IsNaN(mag[0][1]) {
		t.Fatal("input was modified")
	}
}
