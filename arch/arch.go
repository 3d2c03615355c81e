package arch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrShape reports tensor dimensions that a layer cannot consume.
var ErrShape = errors.New("arch: incompatible shape")

// Supported activation names.
const (
	ReLU    = "relu"
	Sigmoid = "sigmoid"
	Tanh    = "tanh"
	Linear  = "linear"
)

// Layer is one strided 2D convolution stage. It is a value type; copies are
// independent and nothing in this module mutates a Layer after construction.
type Layer struct {
	Filters    int    `yaml:"filters" msgpack:"filters"`
	Window     [2]int `yaml:"window" msgpack:"window"`
	Strides    [2]int `yaml:"strides" msgpack:"strides"`
	Activation string `yaml:"activation,omitempty" msgpack:"activation"`
}

// New returns a ReLU activated layer.
func New(filters int, window, strides [2]int) Layer {
	return Layer{Filters: filters, Window: window, Strides: strides, Activation: ReLU}
}

// WithActivation returns a copy of l using the named activation.
func (l Layer) WithActivation(name string) Layer {
	l.Activation = name
	return l
}

// Act returns the activation name, defaulting to ReLU.
func (l Layer) Act() string {
	if l.Activation == "" {
		return ReLU
	}
	return l.Activation
}

// String formats the layer as C(F,K1,K2,S1,S2).
func (l Layer) String() string {
	return fmt.Sprintf("C(%d,%d,%d,%d,%d)", l.Filters, l.Window[0], l.Window[1], l.Strides[0], l.Strides[1])
}

// Validate checks that all sizes are positive and the activation is known.
func (l Layer) Validate() error {
	if l.Filters <= 0 {
		return fmt.Errorf("%w: %s: filters must be > 0", ErrShape, l)
	}
	for i := 0; i < 2; i++ {
		if l.Window[i] <= 0 || l.Strides[i] <= 0 {
			return fmt.Errorf("%w: %s: window and strides must be > 0", ErrShape, l)
		}
	}
	switch l.Act() {
	case ReLU, Sigmoid, Tanh, Linear:
		return nil
	}
	return fmt.Errorf("arch: %s: unknown activation %q", l, l.Activation)
}

// C1 is the single-layer stack C(38,13,26,13,26).
func C1() []Layer {
	return []Layer{New(38, [2]int{13, 26}, [2]int{13, 26})}
}

type file struct {
	Layers []Layer `yaml:"layers"`
}

// Load decodes a YAML document with a top-level "layers" list.
func Load(r io.Reader) ([]Layer, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("arch: decode layers: %w", err)
	}
	for _, l := range f.Layers {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Layers, nil
}

// LoadFile reads a layer list from a YAML file.
func LoadFile(path string) ([]Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
