// Command synthparams trains a convolutional network that maps one second of
// synthesizer audio to a magnitude spectrogram, and reconstructs audio from
// its predictions.
//
// Usage:
//
//	synthparams [flags] <command>
//
// Commands:
//
//	train    - train on a synthetic set built from the input sample
//	predict  - predict the input with a saved model and write the audio
//	summary  - print the layer table of the configured architecture
//	history  - list recorded training runs
//
// Configuration:
//
//	Defaults are overridden by the YAML file given with --config (or
//	SYNTHPARAMS_CONFIG), then by environment variables. See package config.
package main

import (
	"fmt"
	"os"

	"github.com/neurlang/synthparams/cmd/synthparams/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
