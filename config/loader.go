package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a YAML file and environment variables.
// Tests can override Lookup to inject deterministic maps.
type Loader struct {
	Lookup func(string) (string, bool)
	// File overrides SYNTHPARAMS_CONFIG when set.
	File string
}

// Load builds the configuration.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	cfg := Default()

	path := l.File
	if path == "" {
		if raw, ok := l.Lookup("SYNTHPARAMS_CONFIG"); ok {
			path = strings.TrimSpace(raw)
		}
	}
	if path != "" {
		if err := applyFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(l.Lookup, "AUDIO_WAV_INPUT", &cfg.Input)
	overrideString(l.Lookup, "SYNTHPARAMS_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "SYNTHPARAMS_MODEL_DIR", &cfg.ModelDir)
	overrideString(l.Lookup, "SYNTHPARAMS_OUTPUT", &cfg.Output)
	overrideString(l.Lookup, "SYNTHPARAMS_HISTORY_DIR", &cfg.HistoryDir)
	overrideString(l.Lookup, "SYNTHPARAMS_S3_BUCKET", &cfg.S3.Bucket)
	overrideString(l.Lookup, "SYNTHPARAMS_S3_PREFIX", &cfg.S3.Prefix)
	overrideString(l.Lookup, "SYNTHPARAMS_S3_REGION", &cfg.S3.Region)
	overrideString(l.Lookup, "SYNTHPARAMS_S3_ENDPOINT", &cfg.S3.Endpoint)
	overrideString(l.Lookup, "AWS_ACCESS_KEY_ID", &cfg.S3.AccessKey)
	overrideString(l.Lookup, "AWS_SECRET_ACCESS_KEY", &cfg.S3.SecretKey)

	if err := overrideBool(l.Lookup, "EXPERIMENTATION", &cfg.Experimentation); err != nil {
		return Config{}, err
	}
	ints := []struct {
		key    string
		target *int
	}{
		{"SYNTHPARAMS_SAMPLE_RATE", &cfg.SampleRate},
		{"SYNTHPARAMS_EXAMPLES", &cfg.Examples},
		{"SYNTHPARAMS_EPOCHS", &cfg.Epochs},
		{"SYNTHPARAMS_BATCH_SIZE", &cfg.BatchSize},
	}
	for _, o := range ints {
		if err := overrideInt(l.Lookup, o.key, o.target); err != nil {
			return Config{}, err
		}
	}
	if err := overrideFloat(l.Lookup, "SYNTHPARAMS_DURATION", &cfg.Duration); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "SYNTHPARAMS_VALIDATION_SPLIT", &cfg.ValidationSplit); err != nil {
		return Config{}, err
	}
	if value, ok := l.Lookup("SYNTHPARAMS_SEED"); ok && strings.TrimSpace(value) != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid value for SYNTHPARAMS_SEED: %w", err)
		}
		cfg.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}
