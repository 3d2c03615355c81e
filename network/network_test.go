package network

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gorgonia.org/tensor"

	"github.com/neurlang/synthparams/arch"
)

func small(t *testing.T) *Model {
	t.Helper()
	layers := []arch.Layer{arch.New(4, [2]int{13, 8}, [2]int{13, 8})}
	m, err := Assemble([]int{1, 2048}, layers, WithHidden(16), WithOutputs(12))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func signal(batch, samples int, seed int64) *tensor.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, batch*samples)
	for i := range data {
		data[i] = 0.01 * math.Sin(float64(i%samples)*0.3+rng.Float64())
	}
	return tensor.New(tensor.WithShape(batch, 1, samples), tensor.WithBacking(data))
}

func constant(shape []int, v float64) *tensor.Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

func TestPaperStackSilentInput(t *testing.T) {
	m, err := Assemble([]int{1, 16384}, arch.C1())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.OutputShape(); !tensor.Shape(got).Eq(tensor.Shape{38, 5, 368}) {
		t.Fatalf("output shape = %v", got)
	}
	out, err := m.Predict(constant([]int{1, 1, 16384}, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Shape().Eq(tensor.Shape{1, 38, 5, 368}) {
		t.Fatalf("predict shape = %v", out.Shape())
	}
	for i, v := range out.Data().([]float64) {
		if math.Abs(v-0.5) > 1e-12 {
			t.Fatalf("value %d = %f, want 0.5 for silent input", i, v)
		}
	}
}

func TestPredictRange(t *testing.T) {
	m := small(t)
	out, err := m.Predict(signal(2, 2048, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Shape().Eq(tensor.Shape{2, 4, 5, 12}) {
		t.Fatalf("shape = %v", out.Shape())
	}
	for i, v := range out.Data().([]float64) {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Fatalf("value %d = %f outside [0,1]", i, v)
		}
	}
}

func TestPredictBatchMatchesSingle(t *testing.T) {
	m := small(t)
	batch := signal(3, 2048, 2)
	all, err := m.Predict(batch)
	if err != nil {
		t.Fatal(err)
	}
	per := all.Shape().TotalSize() / 3
	for i := 0; i < 3; i++ {
		one := tensor.New(tensor.WithShape(1, 1, 2048),
			tensor.WithBacking(append([]float64(nil), batch.Data().([]float64)[i*2048:(i+1)*2048]...)))
		got, err := m.Predict(one)
		if err != nil {
			t.Fatal(err)
		}
		want := all.Data().([]float64)[i*per : (i+1)*per]
		for j, v := range got.Data().([]float64) {
			if math.Abs(v-want[j]) > 1e-9 {
				t.Fatalf("example %d value %d: %f vs %f", i, j, v, want[j])
			}
		}
	}
}

func TestAssembleRejects(t *testing.T) {
	if _, err := Assemble([]int{1, 16384}, nil); !errors.Is(err, arch.ErrShape) {
		t.Fatalf("empty stack: err = %v, want ErrShape", err)
	}
	big := []arch.Layer{arch.New(2, [2]int{80, 2}, [2]int{1, 1})}
	if _, err := Assemble([]int{1, 16384}, big); !errors.Is(err, arch.ErrShape) {
		t.Fatalf("oversized window: err = %v, want ErrShape", err)
	}
}

func TestInputShapeChecked(t *testing.T) {
	m := small(t)
	if _, err := m.Predict(constant([]int{1, 1, 1000}, 0)); !errors.Is(err, arch.ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}

func TestNotCompiled(t *testing.T) {
	m := small(t)
	y := constant([]int{1, 4, 5, 12}, 0.5)
	if _, _, err := m.TrainBatch(signal(1, 2048, 3), y); !errors.Is(err, ErrNotCompiled) {
		t.Fatalf("TrainBatch err = %v, want ErrNotCompiled", err)
	}
	if _, _, err := m.Evaluate(signal(1, 2048, 3), y); !errors.Is(err, ErrNotCompiled) {
		t.Fatalf("Evaluate err = %v, want ErrNotCompiled", err)
	}
}

func TestCompileRejectsUnknownNames(t *testing.T) {
	m := small(t)
	tests := []CompileConfig{
		{Optimizer: "lbfgs"},
		{Loss: "hinge"},
		{Metrics: []string{"accuracy"}},
	}
	for _, cfg := range tests {
		if err := m.Compile(cfg); err == nil {
			t.Errorf("Compile(%+v) succeeded", cfg)
		}
	}
	if _, ok := m.Compiled(); ok {
		t.Fatal("failed Compile left the model compiled")
	}
	if err := m.Compile(CompileConfig{}); err != nil {
		t.Fatal(err)
	}
	cfg, _ := m.Compiled()
	if cfg.Optimizer != Adam || cfg.Loss != BinaryCrossentropy || len(cfg.Metrics) != 2 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestTrainingReducesLoss(t *testing.T) {
	rates := map[string]float64{Adam: 1e-2, SGD: 1e-1, RMSProp: 1e-3}
	for opt, lr := range rates {
		t.Run(opt, func(t *testing.T) {
			m := small(t)
			if err := m.Compile(CompileConfig{Optimizer: opt, LearningRate: lr, Metrics: []string{MAE, MSE}}); err != nil {
				t.Fatal(err)
			}
			x := signal(2, 2048, 4)
			y := constant([]int{2, 4, 5, 12}, 0.9)
			first, metrics, err := m.TrainBatch(x, y)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := metrics[MAE]; !ok {
				t.Fatalf("metrics = %v, missing mae", metrics)
			}
			for i := 0; i < 30; i++ {
				if _, _, err := m.TrainBatch(x, y); err != nil {
					t.Fatal(err)
				}
			}
			last, _, err := m.Evaluate(x, y)
			if err != nil {
				t.Fatal(err)
			}
			if !(last < first) {
				t.Fatalf("loss did not decrease: %f -> %f", first, last)
			}
		})
	}
}

func TestEvaluateDoesNotUpdate(t *testing.T) {
	m := small(t)
	if err := m.Compile(CompileConfig{Loss: MeanSquaredError}); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()
	x, y := signal(1, 2048, 5), constant([]int{1, 4, 5, 12}, 0.2)
	a, _, err := m.Evaluate(x, y)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := m.Evaluate(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("evaluate changed loss: %f vs %f", a, b)
	}
	after := m.Snapshot()
	for i := range before {
		for j := range before[i] {
			if before[i][j] != after[i][j] {
				t.Fatalf("param %d changed", i)
			}
		}
	}
}

func TestTargetShapeChecked(t *testing.T) {
	m := small(t)
	if err := m.Compile(DefaultCompileConfig()); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.TrainBatch(signal(2, 2048, 6), constant([]int{1, 4, 5, 12}, 0)); !errors.Is(err, arch.ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}

func TestSaveLoadSamePrediction(t *testing.T) {
	m := small(t)
	if err := m.Compile(DefaultCompileConfig()); err != nil {
		t.Fatal(err)
	}
	x := signal(1, 2048, 7)
	if _, _, err := m.TrainBatch(x, constant([]int{1, 4, 5, 12}, 0.3)); err != nil {
		t.Fatal(err)
	}
	want, err := m.Predict(x)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.Compiled(); !ok {
		t.Fatal("loaded model lost its compile configuration")
	}
	got, err := loaded.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	w := want.Data().([]float64)
	for i, v := range got.Data().([]float64) {
		if math.Abs(v-w[i]) > 1e-12 {
			t.Fatalf("value %d: %f vs %f", i, v, w[i])
		}
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte("not msgpack"))); err == nil {
		t.Fatal("expected error")
	}
}

func TestRestoreChecksSizes(t *testing.T) {
	m := small(t)
	w := m.Snapshot()
	w[0] = w[0][:1]
	if err := m.Restore(w); !errors.Is(err, arch.ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}

func TestDFTKernels(t *testing.T) {
	re, im := dftKernels(8, 5)
	for j := 0; j < 8; j++ {
		if im[j] != 0 {
			t.Fatalf("imag DC row not zero at %d", j)
		}
	}
	if re[0] != 0 || re[7] != 0 {
		t.Fatalf("Hann window edges = %f, %f", re[0], re[7])
	}
}

func TestSummary(t *testing.T) {
	m := small(t)
	sum := m.Summary()
	names := []string{"input", "stft", "conv2d_0", "dense", OutputName}
	if len(sum) != len(names) {
		t.Fatalf("summary has %d rows", len(sum))
	}
	total := 0
	for i, l := range sum {
		if l.Name != names[i] {
			t.Fatalf("row %d = %q, want %q", i, l.Name, names[i])
		}
		total += l.Params
	}
	if total != m.TotalParams() {
		t.Fatalf("summary params %d, total %d", total, m.TotalParams())
	}
	if want := 4*1*13*8 + 4; sum[2].Params != want {
		t.Fatalf("conv params = %d, want %d", sum[2].Params, want)
	}
	if want := 4*16 + 16; sum[3].Params != want {
		t.Fatalf("dense params = %d, want %d", sum[3].Params, want)
	}
}

func TestMetrics(t *testing.T) {
	pred := []float64{0.5, 1}
	target := []float64{1, 1}
	if got := meanAbsoluteError(pred, target); got != 0.25 {
		t.Errorf("mae = %f", got)
	}
	if got := meanSquared(pred, target); math.Abs(got-0.125) > 1e-12 {
		t.Errorf("mse = %f", got)
	}
	if got := meanAbsolutePercentageError(pred, target); math.Abs(got-25) > 1e-12 {
		t.Errorf("mape = %f", got)
	}
}

func TestTrainingUpdatesSpectrogramKernels(t *testing.T) {
	m := small(t)
	if err := m.Compile(CompileConfig{}); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()
	x, y := signal(2, 2048, 6), constant([]int{2, 4, 5, 12}, 0.9)
	for i := 0; i < 3; i++ {
		if _, _, err := m.TrainBatch(x, y); err != nil {
			t.Fatal(err)
		}
	}
	after := m.Snapshot()

	checked := 0
	for i, p := range m.Params() {
		if p.Name != "stft/real" && p.Name != "stft/imag" {
			continue
		}
		checked++
		var change float64
		for j := range before[i] {
			change = math.Max(change, math.Abs(after[i][j]-before[i][j]))
		}
		if change == 0 {
			t.Errorf("%s is frozen", p.Name)
		}
	}
	if checked != 2 {
		t.Fatalf("found %d spectrogram kernels, want 2", checked)
	}
}

func TestOddPaddingKeepsFrameCount(t *testing.T) {
	layers := []arch.Layer{arch.New(2, [2]int{2, 2}, [2]int{1, 1})}
	m, err := Assemble([]int{1, 100}, layers, WithTransform(8, 1), WithHidden(4), WithOutputs(3))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Summary()[1].Shape; !tensor.Shape(got).Eq(tensor.Shape{1, 5, 100}) {
		t.Fatalf("spectrogram shape = %v, want (1, 5, 100)", got)
	}
	out, err := m.Predict(signal(1, 100, 7))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Shape().Eq(tensor.Shape{1, 2, 4, 3}) {
		t.Fatalf("predict shape = %v", out.Shape())
	}
}
