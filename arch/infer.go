package arch

import "fmt"

// Transform holds the short-time analysis sizes of the spectrogram front end.
type Transform struct {
	NDFT int `yaml:"n_dft" msgpack:"n_dft"`
	NHop int `yaml:"n_hop" msgpack:"n_hop"`
}

// DefaultTransform uses a 128 sample window and a 64 sample hop.
func DefaultTransform() Transform {
	return Transform{NDFT: 128, NHop: 64}
}

// Bins is the size of the frequency axis.
func (t Transform) Bins() int { return t.NDFT/2 + 1 }

// Padding returns the zeros added before and after a waveform so that the
// analysis yields exactly Frames(samples) frames. An odd total puts the extra
// zero after the waveform.
func (t Transform) Padding(samples int) (before, after int) {
	total := (t.Frames(samples)-1)*t.NHop + t.NDFT - samples
	if total <= 0 {
		return 0, 0
	}
	return total / 2, total - total/2
}

// Frames is the size of the time axis, ceil(samples/hop).
func (t Transform) Frames(samples int) int {
	return (samples + t.NHop - 1) / t.NHop
}

// Validate checks the analysis sizes.
func (t Transform) Validate() error {
	if t.NDFT < 2 || t.NDFT%2 != 0 {
		return fmt.Errorf("%w: n_dft must be even and >= 2, got %d", ErrShape, t.NDFT)
	}
	if t.NHop <= 0 {
		return fmt.Errorf("%w: n_hop must be > 0, got %d", ErrShape, t.NHop)
	}
	return nil
}

// Stage is a named point in the network with its per-example shape.
type Stage struct {
	Name  string
	Shape []int
}

// Infer walks input (channel, samples) through the spectrogram, every layer and
// the two dense layers, returning the channel-first shape after each stage.
// Dense layers act on the last axis.
func Infer(input []int, t Transform, layers []Layer, hidden, outputs int) ([]Stage, error) {
	if len(input) != 2 {
		return nil, fmt.Errorf("%w: input must be (channel, samples), got %v", ErrShape, input)
	}
	if input[0] != 1 {
		return nil, fmt.Errorf("%w: only mono input is supported, got %d channels", ErrShape, input[0])
	}
	if input[1] < t.NDFT {
		return nil, fmt.Errorf("%w: %d samples shorter than n_dft %d", ErrShape, input[1], t.NDFT)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: at least one convolution layer is required", ErrShape)
	}
	if hidden <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: dense sizes must be > 0", ErrShape)
	}

	c, h, w := 1, t.Bins(), t.Frames(input[1])
	stages := []Stage{{Name: "stft", Shape: []int{c, h, w}}}
	for i, l := range layers {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if l.Window[0] > h || l.Window[1] > w {
			return nil, fmt.Errorf("%w: layer %d %s: window exceeds input %dx%d", ErrShape, i, l, h, w)
		}
		h = (h-l.Window[0])/l.Strides[0] + 1
		w = (w-l.Window[1])/l.Strides[1] + 1
		c = l.Filters
		stages = append(stages, Stage{Name: fmt.Sprintf("conv2d_%d", i), Shape: []int{c, h, w}})
	}
	stages = append(stages,
		Stage{Name: "dense", Shape: []int{c, h, hidden}},
		Stage{Name: "predictions", Shape: []int{c, h, outputs}},
	)
	return stages, nil
}
