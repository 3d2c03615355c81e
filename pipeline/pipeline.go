package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/config"
	"github.com/neurlang/synthparams/infer"
	"github.com/neurlang/synthparams/network"
	"github.com/neurlang/synthparams/phase"
	"github.com/neurlang/synthparams/spectro"
	"github.com/neurlang/synthparams/store"
	"github.com/neurlang/synthparams/train"
	"github.com/neurlang/synthparams/wave"
)

// Deps are the collaborators of a run. Zero values are replaced with
// defaults: a discarding logger, a local store at cfg.ModelDir and no history.
type Deps struct {
	Logger  *slog.Logger
	Store   store.Artifacts
	History *store.History
	OnBatch func(epoch, batch, batches int, loss float64)
}

// Result is what a run produced.
type Result struct {
	RunID      string
	SampleRate int
	Model      *network.Model
	History    *train.History
	Artifact   string
	Prediction [][]float64
	Audio      []float64
}

func (d *Deps) fill(cfg config.Config) error {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Store == nil {
		a, err := OpenStore(cfg)
		if err != nil {
			return err
		}
		d.Store = a
	}
	return nil
}

// OpenStore returns the artifact store selected by cfg.
func OpenStore(cfg config.Config) (store.Artifacts, error) {
	if cfg.S3.Bucket != "" {
		client := store.NewS3Client(store.S3Options{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		return store.NewBucket(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	}
	return store.NewDir(cfg.ModelDir)
}

// Run trains a model on a synthetic set built from cfg.Input and, when
// cfg.Experimentation is set, saves it, predicts the input and writes the
// reconstruction to cfg.Output.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Result, error) {
	if err := deps.fill(cfg); err != nil {
		return nil, stageErr(StageSave, err)
	}
	log := deps.Logger
	res := &Result{}

	samples, rate, err := wave.Load(cfg.Input, cfg.SampleRate, cfg.Duration)
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	res.SampleRate = rate
	log.Info("loaded input", "path", cfg.Input, "samples", len(samples), "sample_rate", rate)

	m, err := network.Assemble([]int{1, len(samples)}, cfg.Layers,
		network.WithTransform(cfg.NDFT, cfg.NHop),
		network.WithHidden(cfg.Hidden),
		network.WithOutputs(cfg.Outputs),
		network.WithSeed(cfg.Seed),
	)
	if err != nil {
		return nil, stageErr(StageAssemble, err)
	}
	res.Model = m
	for _, l := range m.Summary() {
		log.Debug("layer", "name", l.Name, "kind", l.Kind, "shape", l.Shape, "params", l.Params)
	}
	log.Info("assembled model", "output", m.OutputShape(), "params", m.TotalParams())

	if err := m.Compile(cfg.Compile); err != nil {
		return nil, stageErr(StageCompile, err)
	}

	ds := Synthetic(samples, m.OutputShape(), cfg.Examples, cfg.Seed)
	trainSet, valSet, err := train.Split(ds, cfg.ValidationSplit)
	if err != nil {
		return nil, stageErr(StageFit, err)
	}

	var run store.Run
	if deps.History != nil {
		run, err = deps.History.Begin(ctx, store.Run{
			Input:    cfg.Input,
			Layers:   cfg.Layers,
			Examples: cfg.Examples,
		})
		if err != nil {
			return nil, stageErr(StageFit, err)
		}
		res.RunID = run.ID
	}

	opts := train.Options{
		BatchSize: cfg.BatchSize,
		Epochs:    cfg.Epochs,
		OnBatch:   deps.OnBatch,
		OnEpoch: func(e train.Epoch) error {
			log.Info("epoch",
				"epoch", e.Epoch,
				"loss", e.Loss,
				"val_loss", e.ValLoss,
				"metrics", e.Metrics,
				"val_metrics", e.ValMetrics,
				"duration", e.Duration.Round(time.Millisecond),
			)
			if deps.History != nil {
				return deps.History.AppendEpoch(ctx, run.ID, e)
			}
			return nil
		},
	}
	if cfg.Patience > 0 {
		opts.EarlyStopping = &train.EarlyStopping{Patience: cfg.Patience, RestoreBest: true}
	}
	log.Info("training", "train", trainSet.Len(), "validation", valSet.Len(), "epochs", cfg.Epochs, "batch_size", cfg.BatchSize)
	hist, err := train.Fit(ctx, m, trainSet, valSet, opts)
	res.History = hist
	if err != nil {
		finish(ctx, deps, run.ID, "", err)
		return res, stageErr(StageFit, err)
	}
	status := store.StatusDone
	if hist.Stopped {
		status = store.StatusStopped
		log.Info("early stopping", "epochs", len(hist.Epochs), "best", hist.Best+1)
	}

	if !cfg.Experimentation {
		finishStatus(ctx, deps, run.ID, status, "", nil)
		return res, nil
	}

	info, err := store.Save(ctx, deps.Store, cfg.ModelName, m.Save)
	if err != nil {
		finish(ctx, deps, run.ID, "", err)
		return res, stageErr(StageSave, err)
	}
	res.Artifact = cfg.ModelName
	log.Info("saved model", "artifact", cfg.ModelName, "bytes", info.Size)
	finishStatus(ctx, deps, run.ID, status, cfg.ModelName, nil)

	if err := predictAndWrite(cfg, m, samples, rate, log, res); err != nil {
		return res, err
	}
	return res, nil
}

// Predict loads the saved model, predicts cfg.Input and writes the
// reconstruction to cfg.Output.
func Predict(ctx context.Context, cfg config.Config, deps Deps) (*Result, error) {
	if err := deps.fill(cfg); err != nil {
		return nil, stageErr(StageLoad, err)
	}
	log := deps.Logger
	res := &Result{Artifact: cfg.ModelName}

	var m *network.Model
	err := store.Load(ctx, deps.Store, cfg.ModelName, func(r io.Reader) error {
		var err error
		m, err = network.Load(r)
		return err
	})
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	res.Model = m

	in := m.InputShape()
	samples, rate, err := wave.Load(cfg.Input, cfg.SampleRate, cfg.Duration)
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	samples = wave.Fit(samples, in[1])
	res.SampleRate = rate
	log.Info("loaded model", "artifact", cfg.ModelName, "input", in, "output", m.OutputShape())

	if err := predictAndWrite(cfg, m, samples, rate, log, res); err != nil {
		return res, err
	}
	return res, nil
}

func predictAndWrite(cfg config.Config, m *network.Model, samples []float64, rate int, log *slog.Logger, res *Result) error {
	layout, err := infer.ParseLayout(cfg.Layout)
	if err != nil {
		return stageErr(StagePredict, err)
	}
	x := train.Repeat(samples, []int{1, len(samples)}, 1)
	mag, err := infer.Predict(m, x, layout)
	if err != nil {
		return stageErr(StagePredict, err)
	}
	res.Prediction = mag
	log.Info("predicted", "rows", len(mag), "cols", len(mag[0]))

	p := &phase.Phase{Iterations: cfg.Iterations, Momentum: cfg.Momentum}
	if cfg.DumpPrefix != "" {
		if err := spectro.WritePNG(cfg.DumpPrefix+".png", mag, spectro.Options{YReverse: true}); err != nil {
			return stageErr(StageWrite, err)
		}
		meta := spectro.Meta{Hop: p.FrameShift(2 * (len(mag) - 1)), SampleRate: rate}
		if err := spectro.WriteHalf(cfg.DumpPrefix+".f16", mag, meta); err != nil {
			return stageErr(StageWrite, err)
		}
	}

	audio, err := infer.Reconstruct(p, mag)
	if err != nil {
		return stageErr(StageReconstruct, err)
	}
	res.Audio = audio

	if err := wave.Write(cfg.Output, audio, rate); err != nil {
		return stageErr(StageWrite, err)
	}
	log.Info("wrote reconstruction", "path", cfg.Output, "samples", len(audio))
	return nil
}

// Synthetic repeats example n times with uniform random targets shaped
// (n, outShape...).
func Synthetic(example []float64, outShape []int, n int, seed int64) train.Dataset {
	x := train.Repeat(example, []int{1, len(example)}, n)
	size := n
	for _, d := range outShape {
		size *= d
	}
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, size)
	for i := range y {
		y[i] = rng.Float64()
	}
	return train.Dataset{
		X: x,
		Y: tensor.New(tensor.WithShape(append([]int{n}, outShape...)...), tensor.WithBacking(y)),
	}
}

func finish(ctx context.Context, deps Deps, id, artifact string, err error) {
	status := store.StatusFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = store.StatusCanceled
	}
	finishStatus(ctx, deps, id, status, artifact, err)
}

func finishStatus(ctx context.Context, deps Deps, id, status, artifact string, err error) {
	if deps.History == nil || id == "" {
		return
	}
	// record the outcome even when ctx is canceled
	if ferr := deps.History.Finish(context.WithoutCancel(ctx), id, status, artifact, err); ferr != nil {
		deps.Logger.Warn("record run outcome", "run", id, "error", ferr)
	}
}
