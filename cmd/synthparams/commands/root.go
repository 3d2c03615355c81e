package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neurlang/synthparams/config"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
	input    string
)

var rootCmd = &cobra.Command{
	Use:   "synthparams",
	Short: "Learn synthesizer spectrograms from audio",
	Long: `synthparams trains a convolutional network on a one second synthesizer
sample and reconstructs audio from the predicted magnitude spectrogram.

Examples:
  # Train with the default C1 architecture
  synthparams train

  # Train a stack described in a YAML file for 5 epochs
  synthparams --config run.yaml train --epochs 5

  # Reuse the saved model
  synthparams predict -i audio/samples/other.wav -o out.wav
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file (default $SYNTHPARAMS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $SYNTHPARAMS_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVarP(&input, "input", "i", "", "input audio file (default $AUDIO_WAV_INPUT)")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig applies the global flags on top of the loaded configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Loader{File: cfgFile}.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if input != "" {
		cfg.Input = input
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
