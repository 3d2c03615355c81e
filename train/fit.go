package train

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorgonia.org/tensor"
)

// Defaults used by DefaultOptions.
const (
	DefaultBatchSize = 16
	DefaultEpochs    = 100
)

// Model is the training surface of a compiled network.
type Model interface {
	TrainBatch(x, y *tensor.Dense) (float64, map[string]float64, error)
	Evaluate(x, y *tensor.Dense) (float64, map[string]float64, error)
}

// Snapshotter is implemented by models whose weights can be saved and
// restored in memory.
type Snapshotter interface {
	Snapshot() [][]float64
	Restore([][]float64) error
}

// EarlyStopping stops training after Patience epochs without a validation
// loss improvement larger than MinDelta.
type EarlyStopping struct {
	Patience    int
	MinDelta    float64
	RestoreBest bool
}

// Options configure Fit.
type Options struct {
	BatchSize     int
	Epochs        int
	EarlyStopping *EarlyStopping

	// OnBatch is called after every optimizer step.
	OnBatch func(epoch, batch, batches int, loss float64)
	// OnEpoch is called after every completed epoch; an error aborts Fit.
	OnEpoch func(Epoch) error
}

// DefaultOptions trains for 100 epochs with batches of 16.
func DefaultOptions() Options {
	return Options{BatchSize: DefaultBatchSize, Epochs: DefaultEpochs}
}

// Epoch holds the measurements of one completed epoch.
type Epoch struct {
	Epoch      int                `msgpack:"epoch"`
	Loss       float64            `msgpack:"loss"`
	Metrics    map[string]float64 `msgpack:"metrics"`
	ValLoss    float64            `msgpack:"val_loss"`
	ValMetrics map[string]float64 `msgpack:"val_metrics"`
	Duration   time.Duration      `msgpack:"duration"`
}

// History is the append-only record of a Fit call.
type History struct {
	Epochs []Epoch `msgpack:"epochs"`
	// Stopped is set when early stopping ended training.
	Stopped bool `msgpack:"stopped"`
	// Best is the index of the epoch with the lowest validation loss.
	Best int `msgpack:"best"`
}

// Last returns the most recent epoch.
func (h *History) Last() (Epoch, bool) {
	if len(h.Epochs) == 0 {
		return Epoch{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Fit trains m on trainSet and validates on valSet after every epoch. The
// context is checked between epochs; on cancellation the partial history is
// returned with the context error.
func Fit(ctx context.Context, m Model, trainSet, valSet Dataset, opts Options) (*History, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Epochs < 0 {
		return nil, fmt.Errorf("train: negative epoch count %d", opts.Epochs)
	}
	if err := trainSet.Validate(); err != nil {
		return nil, fmt.Errorf("training set: %w", err)
	}
	if err := valSet.Validate(); err != nil {
		return nil, fmt.Errorf("validation set: %w", err)
	}
	hist := &History{}
	if opts.Epochs == 0 {
		return hist, nil
	}
	if trainSet.Len() == 0 {
		return nil, fmt.Errorf("%w: empty training set", ErrDimensionMismatch)
	}
	if valSet.Len() == 0 {
		return nil, fmt.Errorf("%w: empty validation set", ErrDimensionMismatch)
	}

	trainBatches, err := batches(trainSet, opts.BatchSize)
	if err != nil {
		return nil, err
	}
	valBatches, err := batches(valSet, opts.BatchSize)
	if err != nil {
		return nil, err
	}

	stop := newStopper(m, opts.EarlyStopping)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return hist, err
		}
		start := time.Now()

		var acc meter
		for i, b := range trainBatches {
			loss, metrics, err := m.TrainBatch(b.X, b.Y)
			if err != nil {
				return hist, fmt.Errorf("train: epoch %d batch %d: %w", epoch+1, i+1, err)
			}
			acc.add(b.Len(), loss, metrics)
			if opts.OnBatch != nil {
				opts.OnBatch(epoch+1, i+1, len(trainBatches), loss)
			}
		}

		var val meter
		for i, b := range valBatches {
			loss, metrics, err := m.Evaluate(b.X, b.Y)
			if err != nil {
				return hist, fmt.Errorf("train: epoch %d validation batch %d: %w", epoch+1, i+1, err)
			}
			val.add(b.Len(), loss, metrics)
		}

		e := Epoch{Epoch: epoch + 1, Duration: time.Since(start)}
		e.Loss, e.Metrics = acc.mean()
		e.ValLoss, e.ValMetrics = val.mean()
		hist.Epochs = append(hist.Epochs, e)

		if opts.OnEpoch != nil {
			if err := opts.OnEpoch(e); err != nil {
				return hist, err
			}
		}
		if stop.update(hist) {
			hist.Stopped = true
			break
		}
	}
	if err := stop.finish(); err != nil {
		return hist, err
	}
	return hist, nil
}

func batches(ds Dataset, size int) ([]Dataset, error) {
	n := ds.Len()
	out := make([]Dataset, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		b, err := ds.Slice(lo, min(lo+size, n))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// meter accumulates example-weighted means.
type meter struct {
	n       int
	loss    float64
	metrics map[string]float64
}

func (a *meter) add(n int, loss float64, metrics map[string]float64) {
	if a.metrics == nil {
		a.metrics = make(map[string]float64, len(metrics))
	}
	a.n += n
	a.loss += float64(n) * loss
	for k, v := range metrics {
		a.metrics[k] += float64(n) * v
	}
}

func (a *meter) mean() (float64, map[string]float64) {
	out := make(map[string]float64, len(a.metrics))
	if a.n == 0 {
		return math.NaN(), out
	}
	for k, v := range a.metrics {
		out[k] = v / float64(a.n)
	}
	return a.loss / float64(a.n), out
}

type stopper struct {
	model Model
	cfg   *EarlyStopping
	best  float64
	wait  int
	saved [][]float64
}

func newStopper(m Model, cfg *EarlyStopping) *stopper {
	return &stopper{model: m, cfg: cfg, best: math.Inf(1)}
}

// update records the last epoch and reports whether training should stop.
func (s *stopper) update(h *History) bool {
	last := len(h.Epochs) - 1
	loss := h.Epochs[last].ValLoss
	if loss < s.best-s.minDelta() {
		s.best = loss
		s.wait = 0
		h.Best = last
		if s.cfg != nil && s.cfg.RestoreBest {
			if snap, ok := s.model.(Snapshotter); ok {
				s.saved = snap.Snapshot()
			}
		}
		return false
	}
	if s.cfg == nil {
		return false
	}
	s.wait++
	return s.wait >= s.cfg.Patience
}

func (s *stopper) minDelta() float64 {
	if s.cfg == nil {
		return 0
	}
	return s.cfg.MinDelta
}

func (s *stopper) finish() error {
	if s.saved == nil {
		return nil
	}
	if err := s.model.(Snapshotter).Restore(s.saved); err != nil {
		return fmt.Errorf("train: restore best weights: %w", err)
	}
	return nil
}
