package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/neurlang/synthparams/config"
	"github.com/neurlang/synthparams/pipeline"
	"github.com/neurlang/synthparams/store"
)

var (
	trainEpochs   int
	trainExamples int
	trainOutput   string
	noProgress    bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the input sample",
	Long: `Train the configured architecture on a synthetic set built by repeating
the input sample with random targets. When experimentation is enabled the
model is saved, the input is predicted and the reconstruction is written.

Examples:
  synthparams train
  synthparams train --epochs 5 --examples 64
  EXPERIMENTATION=false synthparams train`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("epochs") {
			cfg.Epochs = trainEpochs
		}
		if cmd.Flags().Changed("examples") {
			cfg.Examples = trainExamples
		}
		if trainOutput != "" {
			cfg.Output = trainOutput
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log := newLogger(cfg.LogLevel)

		deps := pipeline.Deps{Logger: log}
		if cfg.HistoryDir != "" {
			hist, err := store.OpenHistory(store.HistoryOptions{Dir: cfg.HistoryDir, Logger: log})
			if err != nil {
				return err
			}
			defer hist.Close()
			deps.History = hist
		}

		var bars *progress
		if !noProgress {
			bars = newProgress()
			deps.OnBatch = bars.onBatch
		}
		res, err := pipeline.Run(cmd.Context(), cfg, deps)
		if bars != nil {
			bars.wait()
		}
		if err != nil {
			return err
		}
		printOutcome(cmd, cfg, res)
		return nil
	},
}

func init() {
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", config.DefaultEpochs, "number of epochs")
	trainCmd.Flags().IntVar(&trainExamples, "examples", config.DefaultExamples, "number of synthetic examples")
	trainCmd.Flags().StringVarP(&trainOutput, "output", "o", "", "reconstructed audio file")
	trainCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bars")
}

// progress shows one bar per epoch.
type progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgress() *progress {
	return &progress{p: mpb.New(mpb.WithWidth(64))}
}

func (pr *progress) onBatch(epoch, batch, batches int, loss float64) {
	if batch == 1 {
		pr.bar = pr.p.AddBar(int64(batches),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("Epoch %d: ", epoch)),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.Elapsed(decor.ET_STYLE_GO),
			),
		)
	}
	pr.bar.Increment()
}

func (pr *progress) wait() {
	if pr.bar != nil && !pr.bar.Completed() {
		pr.bar.Abort(false)
	}
	pr.p.Wait()
}

func printOutcome(cmd *cobra.Command, cfg config.Config, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	if res.RunID != "" {
		fmt.Fprintln(out, dimStyle.Render("run "+res.RunID))
	}
	if last, ok := res.History.Last(); ok {
		header := []string{"epochs", "loss", "val_loss"}
		row := []string{fmt.Sprint(len(res.History.Epochs)), formatFloat(last.Loss), formatFloat(last.ValLoss)}
		names := make([]string, 0, len(last.ValMetrics))
		for name := range last.ValMetrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			header = append(header, "val_"+name)
			row = append(row, formatFloat(last.ValMetrics[name]))
		}
		fmt.Fprint(out, renderTable("Training", header, [][]string{row}))
	}
	if res.Artifact != "" {
		fmt.Fprintf(out, "%s %s\n", headerStyle.Render("model:"), res.Artifact)
	}
	if res.Audio != nil {
		fmt.Fprintf(out, "%s %s (%d samples)\n", headerStyle.Render("audio:"), cfg.Output, len(res.Audio))
	}
}
