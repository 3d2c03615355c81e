package train

import (
	"errors"
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// ErrDimensionMismatch reports inputs and targets that disagree on their
// leading dimension, or a missing validation set.
var ErrDimensionMismatch = errors.New("train: dimension mismatch")

// Dataset pairs inputs with targets along the leading dimension.
type Dataset struct {
	X *tensor.Dense
	Y *tensor.Dense
}

// Len is the number of examples.
func (d Dataset) Len() int {
	if d.X == nil || len(d.X.Shape()) == 0 {
		return 0
	}
	return d.X.Shape()[0]
}

// Validate checks that X and Y hold the same number of examples.
func (d Dataset) Validate() error {
	if d.X == nil || d.Y == nil {
		if d.X == nil && d.Y == nil {
			return nil
		}
		return fmt.Errorf("%w: inputs and targets must both be set", ErrDimensionMismatch)
	}
	xs, ys := d.X.Shape(), d.Y.Shape()
	if len(xs) == 0 || len(ys) == 0 || xs[0] != ys[0] {
		return fmt.Errorf("%w: inputs %v, targets %v", ErrDimensionMismatch, xs, ys)
	}
	return nil
}

// Slice returns examples [lo, hi) sharing the backing data of d.
func (d Dataset) Slice(lo, hi int) (Dataset, error) {
	x, err := rows(d.X, lo, hi)
	if err != nil {
		return Dataset{}, err
	}
	y, err := rows(d.Y, lo, hi)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{X: x, Y: y}, nil
}

// Split keeps the first N-floor(N*fraction) examples for training and the
// remaining tail for validation.
func Split(ds Dataset, fraction float64) (Dataset, Dataset, error) {
	if err := ds.Validate(); err != nil {
		return Dataset{}, Dataset{}, err
	}
	if fraction < 0 || fraction >= 1 || math.IsNaN(fraction) {
		return Dataset{}, Dataset{}, fmt.Errorf("train: validation fraction %v outside [0, 1)", fraction)
	}
	n := ds.Len()
	cut := n - int(math.Floor(float64(n)*fraction))
	trainSet, err := ds.Slice(0, cut)
	if err != nil {
		return Dataset{}, Dataset{}, err
	}
	if cut == n {
		return trainSet, Dataset{}, nil
	}
	valSet, err := ds.Slice(cut, n)
	if err != nil {
		return Dataset{}, Dataset{}, err
	}
	return trainSet, valSet, nil
}

// Repeat builds a tensor of n copies of example along a new leading axis.
func Repeat(example []float64, shape []int, n int) *tensor.Dense {
	data := make([]float64, 0, n*len(example))
	for i := 0; i < n; i++ {
		data = append(data, example...)
	}
	return tensor.New(tensor.WithShape(append([]int{n}, shape...)...), tensor.WithBacking(data))
}

func rows(t *tensor.Dense, lo, hi int) (*tensor.Dense, error) {
	shape := t.Shape()
	if lo < 0 || hi > shape[0] || lo > hi {
		return nil, fmt.Errorf("train: rows [%d, %d) out of range %d", lo, hi, shape[0])
	}
	if t.Dtype() != tensor.Float64 {
		return nil, fmt.Errorf("train: dtype %v, want float64", t.Dtype())
	}
	if t.IsMaterializable() {
		t = t.Materialize().(*tensor.Dense)
	}
	stride := 1
	for _, d := range shape[1:] {
		stride *= d
	}
	data := t.Data().([]float64)[lo*stride : hi*stride : hi*stride]
	out := append([]int{hi - lo}, shape[1:]...)
	return tensor.New(tensor.WithShape(out...), tensor.WithBacking(data)), nil
}
