package infer

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/arch"
	"github.com/neurlang/synthparams/phase"
)

// Layout names where the channel axis sits in a 4D prediction.
type Layout int

const (
	// ChannelsFirst predictions are (N, C, H, W); Predict keeps [0, 0, :, :].
	ChannelsFirst Layout = iota
	// ChannelsLast predictions are (N, H, W, C); Predict keeps [0, :, :, 0].
	ChannelsLast
)

// ParseLayout accepts "channels_first" and "channels_last".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "channels_first", "":
		return ChannelsFirst, nil
	case "channels_last":
		return ChannelsLast, nil
	}
	return 0, fmt.Errorf("infer: unknown layout %q", s)
}

func (l Layout) String() string {
	if l == ChannelsLast {
		return "channels_last"
	}
	return "channels_first"
}

// Model runs a forward pass.
type Model interface {
	Predict(x *tensor.Dense) (*tensor.Dense, error)
}

// Predict runs m on a batch holding exactly one example and squeezes the
// result into a 2D array according to layout.
func Predict(m Model, batch *tensor.Dense, layout Layout) ([][]float64, error) {
	if batch == nil || len(batch.Shape()) == 0 || batch.Shape()[0] != 1 {
		var shape tensor.Shape
		if batch != nil {
			shape = batch.Shape()
		}
		return nil, fmt.Errorf("%w: predict needs a batch of exactly one example, got %v", arch.ErrShape, shape)
	}
	out, err := m.Predict(batch)
	if err != nil {
		return nil, err
	}
	return Squeeze(out, layout)
}

// Squeeze extracts the first example of a 4D tensor as a 2D array.
func Squeeze(out *tensor.Dense, layout Layout) ([][]float64, error) {
	shape := out.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("%w: prediction %v is not 4D", arch.ErrShape, shape)
	}
	if out.IsMaterializable() {
		out = out.Materialize().(*tensor.Dense)
	}
	data, ok := out.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("infer: dtype %v, want float64", out.Dtype())
	}

	d1, d2, d3 := shape[1], shape[2], shape[3]
	var rows, cols int
	var at func(i, j int) float64
	switch layout {
	case ChannelsFirst:
		rows, cols = d2, d3
		at = func(i, j int) float64 { return data[i*d3+j] }
	case ChannelsLast:
		rows, cols = d1, d2
		at = func(i, j int) float64 { return data[(i*d2+j)*d3] }
	default:
		return nil, fmt.Errorf("infer: unknown layout %d", layout)
	}
	res := make([][]float64, rows)
	for i := range res {
		res[i] = make([]float64, cols)
		for j := range res[i] {
			res[i][j] = at(i, j)
		}
	}
	return res, nil
}

// Reconstruct clamps NaN, infinite and negative magnitudes to zero and runs phase
// reconstruction. A nil p uses phase.NewPhase.
func Reconstruct(p *phase.Phase, mag [][]float64) ([]float64, error) {
	if p == nil {
		p = phase.NewPhase()
	}
	clean := make([][]float64, len(mag))
	for i, row := range mag {
		clean[i] = make([]float64, len(row))
		for j, v := range row {
			if v > 0 && !math.IsInf(v, 1) {
				clean[i][j] = v
			}
		}
	}
	return p.Reconstruct(clean)
}
