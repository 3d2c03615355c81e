package arch

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestInferPaperStack(t *testing.T) {
	stages, err := Infer([]int{1, 16384}, DefaultTransform(), C1(), 512, 368)
	if err != nil {
		t.Fatal(err)
	}
	want := []Stage{
		{Name: "stft", Shape: []int{1, 65, 256}},
		{Name: "conv2d_0", Shape: []int{38, 5, 9}},
		{Name: "dense", Shape: []int{38, 5, 512}},
		{Name: "predictions", Shape: []int{38, 5, 368}},
	}
	if !reflect.DeepEqual(stages, want) {
		t.Fatalf("stages = %+v, want %+v", stages, want)
	}
}

func TestInferRejects(t *testing.T) {
	tr := DefaultTransform()
	tests := []struct {
		name   string
		input  []int
		layers []Layer
	}{
		{"empty stack", []int{1, 16384}, nil},
		{"window too tall", []int{1, 16384}, []Layer{New(4, [2]int{66, 2}, [2]int{1, 1})}},
		{"window too wide after stride", []int{1, 16384}, []Layer{
			New(4, [2]int{13, 26}, [2]int{13, 26}),
			New(4, [2]int{2, 10}, [2]int{1, 1}),
		}},
		{"stereo", []int{2, 16384}, C1()},
		{"too short", []int{1, 64}, C1()},
		{"zero filters", []int{1, 16384}, []Layer{New(0, [2]int{1, 1}, [2]int{1, 1})}},
		{"rank", []int{16384}, C1()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Infer(tt.input, tr, tt.layers, 512, 368)
			if !errors.Is(err, ErrShape) {
				t.Fatalf("err = %v, want ErrShape", err)
			}
		})
	}
}

func TestTransformFrames(t *testing.T) {
	tests := []struct {
		samples, ndft, hop, want int
	}{
		{16384, 128, 64, 256},
		{1000, 128, 64, 16},
		{2048, 256, 128, 16},
		{1024, 64, 32, 32},
		{100, 8, 1, 100},
		{101, 8, 2, 51},
		{10, 4, 7, 2},
	}
	for _, tt := range tests {
		tr := Transform{NDFT: tt.ndft, NHop: tt.hop}
		if got := tr.Frames(tt.samples); got != tt.want {
			t.Errorf("Frames(%d) with %d/%d = %d, want %d", tt.samples, tt.ndft, tt.hop, got, tt.want)
		}
		// the padded waveform yields exactly the advertised frames
		before, after := tr.Padding(tt.samples)
		if before < 0 || after < before || after-before > 1 {
			t.Errorf("Padding(%d) with %d/%d = %d, %d", tt.samples, tt.ndft, tt.hop, before, after)
		}
		if got := (before+tt.samples+after-tt.ndft)/tt.hop + 1; got != tt.want {
			t.Errorf("padded analysis of %d with %d/%d gives %d frames, want %d", tt.samples, tt.ndft, tt.hop, got, tt.want)
		}
	}
}

func TestLayerDefaults(t *testing.T) {
	l := Layer{Filters: 8, Window: [2]int{3, 3}, Strides: [2]int{1, 1}}
	if l.Act() != ReLU {
		t.Fatalf("Act() = %q, want relu", l.Act())
	}
	if s := C1()[0].String(); s != "C(38,13,26,13,26)" {
		t.Fatalf("String() = %q", s)
	}
	if err := l.WithActivation("swish").Validate(); err == nil {
		t.Fatal("expected unknown activation error")
	}
	if l.Activation != "" {
		t.Fatal("WithActivation mutated the receiver")
	}
}

func TestLoad(t *testing.T) {
	doc := `
layers:
  - filters: 38
    window: [13, 26]
    strides: [13, 26]
  - filters: 16
    window: [2, 2]
    strides: [1, 1]
    activation: tanh
`
	layers, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 2 {
		t.Fatalf("len = %d, want 2", len(layers))
	}
	if layers[0] != C1()[0].WithActivation("") {
		t.Fatalf("layers[0] = %+v", layers[0])
	}
	if layers[1].Act() != Tanh {
		t.Fatalf("layers[1] activation = %q", layers[1].Act())
	}

	if _, err := Load(strings.NewReader("layers:\n  - filters: -1\n    window: [1, 1]\n    strides: [1, 1]\n")); !errors.Is(err, ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}
