package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/arch"
)

// TrainBatch runs one optimizer step on a batch of inputs shaped (N, 1, L) and
// targets shaped (N, C, H, outputs). It returns the loss and metrics measured
// before the update.
func (m *Model) TrainBatch(x, y *tensor.Dense) (float64, map[string]float64, error) {
	return m.run(modeTrain, x, y)
}

// Evaluate computes the loss and metrics of a batch without updating weights.
func (m *Model) Evaluate(x, y *tensor.Dense) (float64, map[string]float64, error) {
	return m.run(modeEval, x, y)
}

// Predict runs the forward pass on inputs shaped (N, 1, L) and returns a new
// tensor shaped (N, C, H, outputs). It does not require Compile.
func (m *Model) Predict(x *tensor.Dense) (*tensor.Dense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in, err := m.checkInput(x)
	if err != nil {
		return nil, err
	}
	s, err := m.session(sessionKey{batch: in.Shape()[0], mode: modePredict})
	if err != nil {
		return nil, err
	}
	s.pull(m.params)
	defer s.vm.Reset()
	if err := G.Let(s.x, in); err != nil {
		return nil, err
	}
	if err := s.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("network: predict: %w", err)
	}
	return tensor.New(
		tensor.WithShape(s.out.Shape()...),
		tensor.WithBacking(append([]float64(nil), s.outVal.Data().([]float64)...)),
	), nil
}

func (m *Model) run(md mode, x, y *tensor.Dense) (float64, map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.compiled == nil {
		return 0, nil, ErrNotCompiled
	}
	in, err := m.checkInput(x)
	if err != nil {
		return 0, nil, err
	}
	batch := in.Shape()[0]
	target, err := m.checkTarget(y, batch)
	if err != nil {
		return 0, nil, err
	}
	s, err := m.session(sessionKey{batch: batch, mode: md})
	if err != nil {
		return 0, nil, err
	}
	s.pull(m.params)
	defer s.vm.Reset()

	if err := G.Let(s.x, in); err != nil {
		return 0, nil, err
	}
	if err := G.Let(s.y, target); err != nil {
		return 0, nil, err
	}
	if err := s.vm.RunAll(); err != nil {
		return 0, nil, fmt.Errorf("network: run batch: %w", err)
	}
	loss, err := scalar(s.costVal)
	if err != nil {
		return 0, nil, err
	}
	metrics := m.compiled.measure(s.outVal.Data().([]float64), target.Data().([]float64))

	if md == modeTrain {
		if err := m.compiled.solver.Step(G.NodesToValueGrads(s.learn)); err != nil {
			return 0, nil, fmt.Errorf("network: optimizer step: %w", err)
		}
		s.push(m.params)
	}
	return loss, metrics, nil
}

// checkInput returns x as (N, 1, 1, before+L+after), zero padded for the
// spectrogram front end.
func (m *Model) checkInput(x *tensor.Dense) (*tensor.Dense, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil input", arch.ErrShape)
	}
	want := []int{m.input[0], m.input[1]}
	shape := x.Shape()
	if len(shape) != 3 || shape[0] < 1 || shape[1] != want[0] || shape[2] != want[1] {
		return nil, fmt.Errorf("%w: input %v, want (N, %d, %d)", arch.ErrShape, shape, want[0], want[1])
	}
	data, err := values(x)
	if err != nil {
		return nil, err
	}
	before, after := m.transform.Padding(shape[2])
	if before+after == 0 {
		return tensor.New(tensor.WithShape(shape[0], 1, 1, shape[2]), tensor.WithBacking(data)), nil
	}
	width := before + shape[2] + after
	padded := make([]float64, shape[0]*width)
	for i := 0; i < shape[0]; i++ {
		copy(padded[i*width+before:], data[i*shape[2]:(i+1)*shape[2]])
	}
	return tensor.New(tensor.WithShape(shape[0], 1, 1, width), tensor.WithBacking(padded)), nil
}

func (m *Model) checkTarget(y *tensor.Dense, batch int) (*tensor.Dense, error) {
	if y == nil {
		return nil, fmt.Errorf("%w: nil target", arch.ErrShape)
	}
	out := m.OutputShape()
	want := tensor.Shape{batch, out[0], out[1], out[2]}
	if !y.Shape().Eq(want) {
		return nil, fmt.Errorf("%w: target %v, want %v", arch.ErrShape, y.Shape(), want)
	}
	data, err := values(y)
	if err != nil {
		return nil, err
	}
	return tensor.New(tensor.WithShape(want...), tensor.WithBacking(data)), nil
}

// values returns the float64 elements of t in row-major order.
func values(t *tensor.Dense) ([]float64, error) {
	if t.Dtype() != tensor.Float64 {
		return nil, fmt.Errorf("network: dtype %v, want float64", t.Dtype())
	}
	if t.IsMaterializable() {
		t = t.Materialize().(*tensor.Dense)
	}
	return t.Data().([]float64), nil
}

func scalar(v G.Value) (float64, error) {
	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) == 1 {
			return d[0], nil
		}
	}
	return 0, fmt.Errorf("network: loss is not a scalar: %v", v.Shape())
}
