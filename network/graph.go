package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/arch"
)

type mode int

const (
	modePredict mode = iota
	modeEval
	modeTrain
)

type sessionKey struct {
	batch int
	mode  mode
}

// session is one compiled graph for a fixed batch size.
type session struct {
	g       *G.ExprGraph
	x, y    *G.Node
	out     *G.Node
	cost    *G.Node
	learn   G.Nodes
	vm      G.VM
	outVal  G.Value
	costVal G.Value
}

// session returns the cached graph for key, building it on first use.
// The caller holds m.mu.
func (m *Model) session(key sessionKey) (*session, error) {
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}
	s, err := m.build(key)
	if err != nil {
		return nil, err
	}
	m.sessions[key] = s
	return s, nil
}

func (m *Model) build(key sessionKey) (s *session, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("network: build graph for batch %d: %v", key.batch, r)
		}
	}()

	t := m.transform
	batch, samples := key.batch, m.input[1]
	before, after := t.Padding(samples)
	g := G.NewGraph()
	s = &session{g: g}
	s.x = G.NewTensor(g, tensor.Float64, 4, G.WithShape(batch, 1, 1, before+samples+after), G.WithName("input"))
	s.learn = make(G.Nodes, len(m.params))
	for i, p := range m.params {
		s.learn[i] = G.NewTensor(g, tensor.Float64, p.T.Dims(),
			G.WithShape(p.T.Shape()...), G.WithName(p.Name), G.WithValue(p.T))
	}
	next := 0
	param := func() *G.Node {
		n := s.learn[next]
		next++
		return n
	}

	// the input arrives zero padded, see checkInput
	spec := m.stages[0].Shape
	re := G.Must(G.Conv2d(s.x, param(), tensor.Shape{1, t.NDFT}, []int{0, 0}, []int{1, t.NHop}, []int{1, 1}))
	im := G.Must(G.Conv2d(s.x, param(), tensor.Shape{1, t.NDFT}, []int{0, 0}, []int{1, t.NHop}, []int{1, 1}))
	power := G.Must(G.Add(G.Must(G.Square(re)), G.Must(G.Square(im))))
	x := G.Must(G.Reshape(power, tensor.Shape{batch, 1, spec[1], spec[2]}))

	for _, l := range m.layers {
		w, b := param(), param()
		c := G.Must(G.Conv2d(x, w, tensor.Shape{l.Window[0], l.Window[1]},
			[]int{0, 0}, []int{l.Strides[0], l.Strides[1]}, []int{1, 1}))
		c = G.Must(G.BroadcastAdd(c, b, nil, []byte{0, 2, 3}))
		x = G.Must(activate(c, l.Act()))
	}

	last := m.stages[len(m.stages)-3].Shape
	rows := batch * last[0] * last[1]
	x = G.Must(G.Reshape(x, tensor.Shape{rows, last[2]}))
	x = G.Must(dense(x, param(), param()))
	x = G.Must(G.Sigmoid(G.Must(dense(x, param(), param()))))
	s.out = G.Must(G.Reshape(x, tensor.Shape{batch, last[0], last[1], m.outputs}))
	G.Read(s.out, &s.outVal)

	if key.mode == modePredict {
		s.vm = G.NewTapeMachine(g)
		return s, nil
	}

	s.y = G.NewTensor(g, tensor.Float64, 4, G.WithShape(s.out.Shape()...), G.WithName("target"))
	s.cost = G.Must(m.compiled.loss(s.out, s.y))
	G.Read(s.cost, &s.costVal)

	if key.mode == modeEval {
		s.vm = G.NewTapeMachine(g)
		return s, nil
	}
	if _, err := G.Grad(s.cost, s.learn...); err != nil {
		return nil, fmt.Errorf("network: gradient: %w", err)
	}
	s.vm = G.NewTapeMachine(g, G.BindDualValues(s.learn...))
	return s, nil
}

func dense(x, w, b *G.Node) (*G.Node, error) {
	xw, err := G.Mul(x, w)
	if err != nil {
		return nil, err
	}
	return G.BroadcastAdd(xw, b, nil, []byte{0})
}

func activate(n *G.Node, name string) (*G.Node, error) {
	switch name {
	case arch.ReLU:
		return G.Rectify(n)
	case arch.Sigmoid:
		return G.Sigmoid(n)
	case arch.Tanh:
		return G.Tanh(n)
	case arch.Linear:
		return n, nil
	}
	return nil, fmt.Errorf("network: unknown activation %q", name)
}

// pull copies the shared parameters into graph values that are not backed by
// the same tensors.
func (s *session) pull(params []*Param) {
	for i, n := range s.learn {
		if d, ok := n.Value().(*tensor.Dense); ok && d != params[i].T {
			copy(d.Data().([]float64), params[i].T.Data().([]float64))
		}
	}
}

// push copies updated graph values back into the shared parameters.
func (s *session) push(params []*Param) {
	for i, n := range s.learn {
		if d, ok := n.Value().(*tensor.Dense); ok && d != params[i].T {
			copy(params[i].T.Data().([]float64), d.Data().([]float64))
		}
	}
}
