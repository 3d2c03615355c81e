package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurlang/synthparams/pipeline"
)

var (
	predictOutput string
	predictDump   string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the input with the saved model",
	Long: `Load the saved model, predict the magnitude spectrogram of the input and
write the Griffin-Lim reconstruction.

Examples:
  synthparams predict -o out.wav
  synthparams predict -i other.wav --dump outputs/other`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if predictOutput != "" {
			cfg.Output = predictOutput
		}
		if predictDump != "" {
			cfg.DumpPrefix = predictDump
		}
		res, err := pipeline.Predict(cmd.Context(), cfg, pipeline.Deps{Logger: newLogger(cfg.LogLevel)})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d\n", headerStyle.Render("prediction:"), len(res.Prediction), len(res.Prediction[0]))
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d samples)\n", headerStyle.Render("audio:"), cfg.Output, len(res.Audio))
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVarP(&predictOutput, "output", "o", "", "reconstructed audio file")
	predictCmd.Flags().StringVar(&predictDump, "dump", "", "write <prefix>.png and <prefix>.f16 spectrogram dumps")
}
