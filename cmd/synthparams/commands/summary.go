package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurlang/synthparams/network"
	"github.com/neurlang/synthparams/wave"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the layer table of the configured architecture",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		samples := wave.Samples(cfg.SampleRate, cfg.Duration)
		if samples == 0 {
			// native rate: the length depends on the file
			buf, _, err := wave.Load(cfg.Input, cfg.SampleRate, cfg.Duration)
			if err != nil {
				return err
			}
			samples = len(buf)
		}
		m, err := network.Assemble([]int{1, samples}, cfg.Layers,
			network.WithTransform(cfg.NDFT, cfg.NHop),
			network.WithHidden(cfg.Hidden),
			network.WithOutputs(cfg.Outputs),
			network.WithSeed(cfg.Seed),
		)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, l := range m.Summary() {
			rows = append(rows, []string{l.Name, l.Kind, formatShape(l.Shape), fmt.Sprint(l.Params)})
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderTable("Model", []string{"layer", "type", "output shape", "params"}, rows))
		fmt.Fprintf(out, "%s %d\n", headerStyle.Render("total params:"), m.TotalParams())
		return nil
	},
}
