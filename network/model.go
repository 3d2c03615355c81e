package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/mjibson/go-dsp/window"
	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/arch"
)

// Default head sizes.
const (
	DefaultHidden  = 512
	DefaultOutputs = 368
	DefaultSeed    = 1
)

// OutputName is the name of the final dense layer.
const OutputName = "predictions"

// ErrNotCompiled is returned by training and evaluation steps on a model that
// has no optimizer, loss and metrics bound.
var ErrNotCompiled = errors.New("network: model not compiled")

// Param is one named trainable tensor.
type Param struct {
	Name string
	T    *tensor.Dense
}

// Model is an assembled network with its trainable parameters.
type Model struct {
	input     []int
	layers    []arch.Layer
	transform arch.Transform
	hidden    int
	outputs   int
	seed      int64
	stages    []arch.Stage
	params    []*Param

	mu       sync.Mutex
	compiled *compiled
	sessions map[sessionKey]*session
}

// Option customises Assemble.
type Option func(*Model)

// WithTransform sets the STFT window and hop sizes.
func WithTransform(nDFT, nHop int) Option {
	return func(m *Model) { m.transform = arch.Transform{NDFT: nDFT, NHop: nHop} }
}

// WithHidden sets the width of the linear dense layer.
func WithHidden(n int) Option {
	return func(m *Model) { m.hidden = n }
}

// WithOutputs sets the width of the sigmoid output layer.
func WithOutputs(n int) Option {
	return func(m *Model) { m.outputs = n }
}

// WithSeed sets the weight initialisation seed.
func WithSeed(seed int64) Option {
	return func(m *Model) { m.seed = seed }
}

// Assemble builds a model for inputs shaped (channel, samples). Shape errors
// wrap arch.ErrShape and are reported before any tensor is allocated.
func Assemble(inputShape []int, layers []arch.Layer, opts ...Option) (*Model, error) {
	m := &Model{
		input:     append([]int(nil), inputShape...),
		layers:    append([]arch.Layer(nil), layers...),
		transform: arch.DefaultTransform(),
		hidden:    DefaultHidden,
		outputs:   DefaultOutputs,
		seed:      DefaultSeed,
	}
	for _, opt := range opts {
		opt(m)
	}
	stages, err := arch.Infer(m.input, m.transform, m.layers, m.hidden, m.outputs)
	if err != nil {
		return nil, err
	}
	m.stages = stages
	m.params = m.initParams(rand.New(rand.NewSource(m.seed)))
	m.sessions = make(map[sessionKey]*session)
	return m, nil
}

// InputShape returns the per-example input shape (channel, samples).
func (m *Model) InputShape() []int { return append([]int(nil), m.input...) }

// OutputShape returns the per-example output shape (C, H, outputs).
func (m *Model) OutputShape() []int {
	return append([]int(nil), m.stages[len(m.stages)-1].Shape...)
}

// Layers returns a copy of the convolution stack.
func (m *Model) Layers() []arch.Layer { return append([]arch.Layer(nil), m.layers...) }

// Transform returns the STFT sizes.
func (m *Model) Transform() arch.Transform { return m.transform }

// Params returns the trainable tensors in graph order.
func (m *Model) Params() []*Param { return m.params }

func (m *Model) initParams(rng *rand.Rand) []*Param {
	var params []*Param
	add := func(name string, shape []int, data []float64) {
		params = append(params, &Param{
			Name: name,
			T:    tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)),
		})
	}

	bins, n := m.transform.Bins(), m.transform.NDFT
	re, im := dftKernels(n, bins)
	add("stft/real", []int{bins, 1, 1, n}, re)
	add("stft/imag", []int{bins, 1, 1, n}, im)

	channels := 1
	for i, l := range m.layers {
		kh, kw := l.Window[0], l.Window[1]
		fanIn, fanOut := channels*kh*kw, l.Filters*kh*kw
		add(fmt.Sprintf("conv2d_%d/kernel", i), []int{l.Filters, channels, kh, kw},
			glorot(rng, l.Filters*channels*kh*kw, fanIn, fanOut))
		add(fmt.Sprintf("conv2d_%d/bias", i), []int{1, l.Filters, 1, 1}, make([]float64, l.Filters))
		channels = l.Filters
	}

	width := m.stages[len(m.stages)-3].Shape[2]
	add("dense/kernel", []int{width, m.hidden}, glorot(rng, width*m.hidden, width, m.hidden))
	add("dense/bias", []int{1, m.hidden}, make([]float64, m.hidden))
	add(OutputName+"/kernel", []int{m.hidden, m.outputs}, glorot(rng, m.hidden*m.outputs, m.hidden, m.outputs))
	add(OutputName+"/bias", []int{1, m.outputs}, make([]float64, m.outputs))
	return params
}

// dftKernels returns Hann windowed cosine and sine bases shaped (bins, n).
func dftKernels(n, bins int) (re, im []float64) {
	w := window.Hann(n)
	re = make([]float64, bins*n)
	im = make([]float64, bins*n)
	for k := 0; k < bins; k++ {
		for j := 0; j < n; j++ {
			theta := 2 * math.Pi * float64(k*j) / float64(n)
			re[k*n+j] = math.Cos(theta) * w[j]
			im[k*n+j] = -math.Sin(theta) * w[j]
		}
	}
	return re, im
}

func glorot(rng *rand.Rand, size, fanIn, fanOut int) []float64 {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	out := make([]float64, size)
	for i := range out {
		out[i] = (2*rng.Float64() - 1) * limit
	}
	return out
}

// Snapshot copies every parameter tensor.
func (m *Model) Snapshot() [][]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]float64, len(m.params))
	for i, p := range m.params {
		out[i] = append([]float64(nil), p.T.Data().([]float64)...)
	}
	return out
}

// Restore overwrites the parameters with a Snapshot.
func (m *Model) Restore(weights [][]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(weights) != len(m.params) {
		return fmt.Errorf("%w: %d weight tensors, model has %d", arch.ErrShape, len(weights), len(m.params))
	}
	for i, p := range m.params {
		if len(weights[i]) != p.T.Size() {
			return fmt.Errorf("%w: %s: %d values, want %d", arch.ErrShape, p.Name, len(weights[i]), p.T.Size())
		}
	}
	for i, p := range m.params {
		copy(p.T.Data().([]float64), weights[i])
	}
	return nil
}
