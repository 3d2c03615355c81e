package config

import (
	"errors"
	"fmt"

	"github.com/neurlang/synthparams/arch"
	"github.com/neurlang/synthparams/infer"
	"github.com/neurlang/synthparams/network"
	"github.com/neurlang/synthparams/phase"
	"github.com/neurlang/synthparams/train"
	"github.com/neurlang/synthparams/wave"
)

// Defaults.
const (
	DefaultInput           = "audio/samples/Yamaha-DX7-Bass-C2.wav"
	DefaultSampleRate      = wave.DefaultSampleRate
	DefaultDuration        = wave.DefaultDuration
	DefaultExamples        = 1000
	DefaultEpochs          = train.DefaultEpochs
	DefaultBatchSize       = train.DefaultBatchSize
	DefaultValidationSplit = 0.2
	DefaultSeed            = network.DefaultSeed
	DefaultNDFT            = 128
	DefaultNHop            = 64
	DefaultHidden          = network.DefaultHidden
	DefaultOutputs         = network.DefaultOutputs
	DefaultIterations      = phase.DefaultIterations
	DefaultLayout          = "channels_first"
	DefaultModelDir        = "models"
	DefaultModelName       = "saved/dx7_sample"
	DefaultOutput          = "audio/outputs/new_audio.wav"
	DefaultLogLevel        = "info"
)

// S3 selects an object store for model artifacts.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// Config is the complete run configuration.
type Config struct {
	Input           string  `yaml:"input"`
	SampleRate      int     `yaml:"sample_rate"`
	Duration        float64 `yaml:"duration"`
	Experimentation bool    `yaml:"experimentation"`

	Examples        int     `yaml:"examples"`
	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	ValidationSplit float64 `yaml:"validation_split"`
	Seed            int64   `yaml:"seed"`
	// Patience enables early stopping when > 0.
	Patience int `yaml:"patience"`

	NDFT    int          `yaml:"n_dft"`
	NHop    int          `yaml:"n_hop"`
	Hidden  int          `yaml:"hidden"`
	Outputs int          `yaml:"outputs"`
	Layers  []arch.Layer `yaml:"layers"`

	Compile network.CompileConfig `yaml:"compile"`

	Iterations int     `yaml:"iterations"`
	Momentum   float64 `yaml:"momentum"`
	Layout     string  `yaml:"layout"`

	ModelDir   string `yaml:"model_dir"`
	ModelName  string `yaml:"model_name"`
	Output     string `yaml:"output"`
	DumpPrefix string `yaml:"dump_prefix"`
	HistoryDir string `yaml:"history_dir"`
	S3         S3     `yaml:"s3"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the paper configuration.
func Default() Config {
	return Config{
		Input:           DefaultInput,
		SampleRate:      DefaultSampleRate,
		Duration:        DefaultDuration,
		Experimentation: true,
		Examples:        DefaultExamples,
		Epochs:          DefaultEpochs,
		BatchSize:       DefaultBatchSize,
		ValidationSplit: DefaultValidationSplit,
		Seed:            DefaultSeed,
		NDFT:            DefaultNDFT,
		NHop:            DefaultNHop,
		Hidden:          DefaultHidden,
		Outputs:         DefaultOutputs,
		Layers:          arch.C1(),
		Compile:         network.DefaultCompileConfig(),
		Iterations:      DefaultIterations,
		Layout:          DefaultLayout,
		ModelDir:        DefaultModelDir,
		ModelName:       DefaultModelName,
		Output:          DefaultOutput,
		LogLevel:        DefaultLogLevel,
	}
}

// Transform returns the STFT sizes.
func (c Config) Transform() arch.Transform {
	return arch.Transform{NDFT: c.NDFT, NHop: c.NHop}
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, errors.New("config: input is required"))
	}
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("config: sample_rate must be >= 0, got %d", c.SampleRate))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("config: duration must be > 0, got %v", c.Duration))
	}
	if c.Examples <= 0 {
		errs = append(errs, fmt.Errorf("config: examples must be > 0, got %d", c.Examples))
	}
	if c.Epochs < 0 {
		errs = append(errs, fmt.Errorf("config: epochs must be >= 0, got %d", c.Epochs))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("config: batch_size must be > 0, got %d", c.BatchSize))
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		errs = append(errs, fmt.Errorf("config: validation_split must be in [0, 1), got %v", c.ValidationSplit))
	}
	if c.Patience < 0 {
		errs = append(errs, fmt.Errorf("config: patience must be >= 0, got %d", c.Patience))
	}
	if err := c.Transform().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if c.Hidden <= 0 || c.Outputs <= 0 {
		errs = append(errs, fmt.Errorf("config: hidden and outputs must be > 0"))
	}
	if len(c.Layers) == 0 {
		errs = append(errs, fmt.Errorf("config: %w: at least one layer is required", arch.ErrShape))
	}
	for _, l := range c.Layers {
		if err := l.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: %w", err))
		}
	}
	if c.Iterations < 0 {
		errs = append(errs, fmt.Errorf("config: iterations must be >= 0, got %d", c.Iterations))
	}
	if c.Momentum < 0 {
		errs = append(errs, fmt.Errorf("config: momentum must be >= 0, got %v", c.Momentum))
	}
	if _, err := infer.ParseLayout(c.Layout); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if c.ModelName == "" {
		errs = append(errs, errors.New("config: model_name is required"))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}
