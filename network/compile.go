package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Optimizer names.
const (
	Adam    = "adam"
	SGD     = "sgd"
	RMSProp = "rmsprop"
)

// Loss names.
const (
	BinaryCrossentropy = "binary_crossentropy"
	MeanSquaredError   = "mse"
)

// Metric names.
const (
	MAPE = "mape"
	MAE  = "mae"
	MSE  = "mse"
)

// CompileConfig selects the optimizer, the loss and the reported metrics.
// Zero values select adam, binary cross entropy and [mape mae].
type CompileConfig struct {
	Optimizer    string   `yaml:"optimizer" msgpack:"optimizer"`
	LearningRate float64  `yaml:"learning_rate" msgpack:"learning_rate"`
	Loss         string   `yaml:"loss" msgpack:"loss"`
	Metrics      []string `yaml:"metrics" msgpack:"metrics"`
}

// DefaultCompileConfig is the paper configuration.
func DefaultCompileConfig() CompileConfig {
	return CompileConfig{Optimizer: Adam, Loss: BinaryCrossentropy, Metrics: []string{MAPE, MAE}}
}

type compiled struct {
	config  CompileConfig
	solver  G.Solver
	loss    func(pred, target *G.Node) (*G.Node, error)
	metrics []string
}

// Compile binds an optimizer, a loss and metrics. Compiling again replaces the
// previous configuration and discards optimizer state.
func (m *Model) Compile(cfg CompileConfig) error {
	def := DefaultCompileConfig()
	if cfg.Optimizer == "" {
		cfg.Optimizer = def.Optimizer
	}
	if cfg.Loss == "" {
		cfg.Loss = def.Loss
	}
	if cfg.Metrics == nil {
		cfg.Metrics = def.Metrics
	}

	solver, err := newSolver(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return err
	}
	var loss func(pred, target *G.Node) (*G.Node, error)
	switch cfg.Loss {
	case BinaryCrossentropy:
		loss = binaryCrossentropy
	case MeanSquaredError, "mean_squared_error":
		loss = meanSquaredError
	default:
		return fmt.Errorf("network: unknown loss %q", cfg.Loss)
	}
	for _, name := range cfg.Metrics {
		if _, ok := metricFuncs[name]; !ok {
			return fmt.Errorf("network: unknown metric %q", name)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.compiled = &compiled{
		config:  cfg,
		solver:  solver,
		loss:    loss,
		metrics: append([]string(nil), cfg.Metrics...),
	}
	m.sessions = make(map[sessionKey]*session)
	return nil
}

// Compiled reports the bound configuration.
func (m *Model) Compiled() (CompileConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.compiled == nil {
		return CompileConfig{}, false
	}
	return m.compiled.config, true
}

func newSolver(name string, lr float64) (G.Solver, error) {
	switch name {
	case Adam:
		if lr == 0 {
			lr = 1e-3
		}
		return G.NewAdamSolver(G.WithLearnRate(lr), G.WithBeta1(0.9), G.WithBeta2(0.999), G.WithEps(1e-7)), nil
	case SGD:
		if lr == 0 {
			lr = 1e-2
		}
		return G.NewVanillaSolver(G.WithLearnRate(lr)), nil
	case RMSProp:
		if lr == 0 {
			lr = 1e-3
		}
		return G.NewRMSPropSolver(G.WithLearnRate(lr), G.WithRho(0.9), G.WithEps(1e-7)), nil
	}
	return nil, fmt.Errorf("network: unknown optimizer %q", name)
}

const lossEps = 1e-7

// binaryCrossentropy is -mean(y*log(p+eps) + (1-y)*log(1-p+eps)).
func binaryCrossentropy(pred, target *G.Node) (*G.Node, error) {
	one := G.NewConstant(1.0)
	eps := G.NewConstant(lossEps)

	logP, err := G.Log(G.Must(G.Add(pred, eps)))
	if err != nil {
		return nil, err
	}
	logQ, err := G.Log(G.Must(G.Add(G.Must(G.Sub(one, pred)), eps)))
	if err != nil {
		return nil, err
	}
	pos, err := G.HadamardProd(target, logP)
	if err != nil {
		return nil, err
	}
	neg, err := G.HadamardProd(G.Must(G.Sub(one, target)), logQ)
	if err != nil {
		return nil, err
	}
	sum, err := G.Add(pos, neg)
	if err != nil {
		return nil, err
	}
	mean, err := G.Mean(sum)
	if err != nil {
		return nil, err
	}
	return G.Neg(mean)
}

func meanSquaredError(pred, target *G.Node) (*G.Node, error) {
	diff, err := G.Sub(pred, target)
	if err != nil {
		return nil, err
	}
	sq, err := G.Square(diff)
	if err != nil {
		return nil, err
	}
	return G.Mean(sq)
}
