package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neurlang/synthparams/arch"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Loader{Lookup: lookup(nil)}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != DefaultInput || cfg.SampleRate != 16384 || cfg.Duration != 1 {
		t.Fatalf("audio defaults = %q %d %v", cfg.Input, cfg.SampleRate, cfg.Duration)
	}
	if !cfg.Experimentation {
		t.Fatal("experimentation should default to true")
	}
	if cfg.BatchSize != 16 || cfg.Epochs != 100 || cfg.ValidationSplit != 0.2 || cfg.Examples != 1000 {
		t.Fatalf("training defaults = %+v", cfg)
	}
	if cfg.NDFT != 128 || cfg.NHop != 64 || cfg.Iterations != 32 {
		t.Fatalf("transform defaults = %d %d %d", cfg.NDFT, cfg.NHop, cfg.Iterations)
	}
	if len(cfg.Layers) != 1 || cfg.Layers[0] != arch.C1()[0] {
		t.Fatalf("layers = %+v", cfg.Layers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Loader{Lookup: lookup(map[string]string{
		"AUDIO_WAV_INPUT":              " in.flac ",
		"EXPERIMENTATION":              "false",
		"SYNTHPARAMS_EPOCHS":           "3",
		"SYNTHPARAMS_BATCH_SIZE":       "4",
		"SYNTHPARAMS_DURATION":         "0.5",
		"SYNTHPARAMS_VALIDATION_SPLIT": "0.25",
		"SYNTHPARAMS_SEED":             "42",
		"SYNTHPARAMS_S3_BUCKET":        "models",
		"SYNTHPARAMS_LOG_LEVEL":        "debug",
		"SYNTHPARAMS_SAMPLE_RATE":      "",
	})}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != "in.flac" || cfg.Experimentation || cfg.Epochs != 3 || cfg.BatchSize != 4 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Duration != 0.5 || cfg.ValidationSplit != 0.25 || cfg.Seed != 42 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.S3.Bucket != "models" || cfg.LogLevel != "debug" || cfg.SampleRate != DefaultSampleRate {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	tests := map[string]string{
		"EXPERIMENTATION":              "maybe",
		"SYNTHPARAMS_EPOCHS":           "many",
		"SYNTHPARAMS_DURATION":         "long",
		"SYNTHPARAMS_SEED":             "1.5",
		"SYNTHPARAMS_VALIDATION_SPLIT": "1",
		"SYNTHPARAMS_BATCH_SIZE":       "0",
		"SYNTHPARAMS_LOG_LEVEL":        "loud",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			if _, err := (Loader{Lookup: lookup(map[string]string{key: value})}).Load(); err == nil {
				t.Fatalf("%s=%q accepted", key, value)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthparams.yaml")
	doc := `
input: bass.wav
epochs: 2
patience: 3
layers:
  - filters: 8
    window: [5, 5]
    strides: [2, 2]
    activation: tanh
compile:
  optimizer: sgd
  learning_rate: 0.05
s3:
  bucket: b
  path_style: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Loader{Lookup: lookup(map[string]string{
		"SYNTHPARAMS_CONFIG": path,
		"SYNTHPARAMS_EPOCHS": "5",
	})}.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != "bass.wav" || cfg.Patience != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Epochs != 5 {
		t.Fatalf("env should win over file: epochs = %d", cfg.Epochs)
	}
	if len(cfg.Layers) != 1 || cfg.Layers[0].Filters != 8 || cfg.Layers[0].Act() != arch.Tanh {
		t.Fatalf("layers = %+v", cfg.Layers)
	}
	if cfg.Compile.Optimizer != "sgd" || cfg.Compile.LearningRate != 0.05 || cfg.Compile.Loss != "binary_crossentropy" {
		t.Fatalf("compile = %+v", cfg.Compile)
	}
	if !cfg.S3.PathStyle || cfg.SampleRate != DefaultSampleRate {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("epochz: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("layers: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{filepath.Join(dir, "missing.yaml"), unknown, empty} {
		_, err := Loader{Lookup: lookup(nil), File: path}.Load()
		if err == nil {
			t.Errorf("%s: expected error", filepath.Base(path))
		}
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Duration = 0
	cfg.Layout = "nhwc"
	cfg.NDFT = 3
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"duration", "layout", "n_dft"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
