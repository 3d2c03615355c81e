package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neurlang/synthparams/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded training runs",
	Long: `List the training runs recorded under history_dir, or the epochs of a
single run.

Examples:
  SYNTHPARAMS_HISTORY_DIR=runs synthparams history
  SYNTHPARAMS_HISTORY_DIR=runs synthparams history 01927c3e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.HistoryDir == "" {
			return errors.New("history_dir is not configured")
		}
		hist, err := store.OpenHistory(store.HistoryOptions{Dir: cfg.HistoryDir, Logger: newLogger(cfg.LogLevel)})
		if err != nil {
			return err
		}
		defer hist.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := hist.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var rows [][]string
			for _, e := range run.Epochs {
				rows = append(rows, []string{
					fmt.Sprint(e.Epoch),
					formatFloat(e.Loss),
					formatFloat(e.ValLoss),
					e.Duration.Round(time.Millisecond).String(),
				})
			}
			fmt.Fprint(out, renderTable("Run "+run.ID+" ("+run.Status+")", []string{"epoch", "loss", "val_loss", "duration"}, rows))
			if run.Error != "" {
				fmt.Fprintln(out, dimStyle.Render(run.Error))
			}
			return nil
		}

		runs, err := hist.List(cmd.Context())
		if err != nil {
			return err
		}
		var rows [][]string
		for _, r := range runs {
			rows = append(rows, []string{
				r.ID,
				r.Started.Local().Format(time.DateTime),
				r.Status,
				r.Input,
				fmt.Sprint(r.Examples),
				r.Artifact,
			})
		}
		fmt.Fprint(out, renderTable("Runs", []string{"id", "started", "status", "input", "examples", "artifact"}, rows))
		return nil
	},
}
