package network

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/neurlang/synthparams/arch"
)

const artifactVersion = 1

type artifact struct {
	Version   int            `msgpack:"version"`
	Input     []int          `msgpack:"input"`
	Transform arch.Transform `msgpack:"transform"`
	Layers    []arch.Layer   `msgpack:"layers"`
	Hidden    int            `msgpack:"hidden"`
	Outputs   int            `msgpack:"outputs"`
	Seed      int64          `msgpack:"seed"`
	Compile   *CompileConfig `msgpack:"compile,omitempty"`
	Params    []paramRecord  `msgpack:"params"`
}

type paramRecord struct {
	Name  string    `msgpack:"name"`
	Shape []int     `msgpack:"shape"`
	Data  []float64 `msgpack:"data"`
}

// Save writes the architecture, compile configuration and weights to w.
func (m *Model) Save(w io.Writer) error {
	m.mu.Lock()
	a := artifact{
		Version:   artifactVersion,
		Input:     m.input,
		Transform: m.transform,
		Layers:    m.layers,
		Hidden:    m.hidden,
		Outputs:   m.outputs,
		Seed:      m.seed,
	}
	if m.compiled != nil {
		cfg := m.compiled.config
		a.Compile = &cfg
	}
	for _, p := range m.params {
		a.Params = append(a.Params, paramRecord{Name: p.Name, Shape: p.T.Shape().Clone(), Data: p.T.Data().([]float64)})
	}
	err := msgpack.NewEncoder(w).Encode(&a)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("network: save: %w", err)
	}
	return nil
}

// Load reads a model written by Save. A saved compile configuration is
// applied again with fresh optimizer state.
func Load(r io.Reader) (*Model, error) {
	var a artifact
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("network: load: %w", err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("network: load: unsupported artifact version %d", a.Version)
	}
	m, err := Assemble(a.Input, a.Layers,
		WithTransform(a.Transform.NDFT, a.Transform.NHop),
		WithHidden(a.Hidden),
		WithOutputs(a.Outputs),
		WithSeed(a.Seed),
	)
	if err != nil {
		return nil, err
	}
	if len(a.Params) != len(m.params) {
		return nil, fmt.Errorf("%w: artifact has %d tensors, model has %d", arch.ErrShape, len(a.Params), len(m.params))
	}
	weights := make([][]float64, len(a.Params))
	for i, rec := range a.Params {
		if rec.Name != m.params[i].Name {
			return nil, fmt.Errorf("network: load: tensor %d is %q, want %q", i, rec.Name, m.params[i].Name)
		}
		weights[i] = rec.Data
	}
	if err := m.Restore(weights); err != nil {
		return nil, err
	}
	if a.Compile != nil {
		if err := m.Compile(*a.Compile); err != nil {
			return nil, err
		}
	}
	return m, nil
}
