package network

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const metricEps = 1e-7

var metricFuncs = map[string]func(pred, target []float64) float64{
	MAPE: meanAbsolutePercentageError,
	MAE:  meanAbsoluteError,
	MSE:  meanSquared,
}

func meanAbsolutePercentageError(pred, target []float64) float64 {
	var sum float64
	for i, y := range target {
		sum += math.Abs(y-pred[i]) / math.Max(math.Abs(y), metricEps)
	}
	return 100 * sum / float64(len(target))
}

func meanAbsoluteError(pred, target []float64) float64 {
	return floats.Distance(pred, target, 1) / float64(len(target))
}

func meanSquared(pred, target []float64) float64 {
	d := floats.Distance(pred, target, 2)
	return d * d / float64(len(target))
}

func (c *compiled) measure(pred, target []float64) map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, name := range c.metrics {
		out[name] = metricFuncs[name](pred, target)
	}
	return out
}
