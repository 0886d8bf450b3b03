package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/operate-cli/internal/adapters/render/report"
)

func newClassifyCmd(c *cli) *cobra.Command {
	var (
		prompt string
		route  routeFlags
	)

	cmd := &cobra.Command{
		Use:   "classify [objective...]",
		Short: "Show how an objective would be classified and routed without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}

			objective, err := resolveObjective(cmd, prompt, args)
			if err != nil {
				return err
			}

			summary, err := app.service.Summarize(cmd.Context(), objective, route.overrides(cmd, app))
			if err != nil {
				return err
			}

			if c.asJSON {
				return writeJSON(cmd, summary)
			}

			return writeRendered(cmd, "classification", func() (string, error) {
				return report.RenderSummary(summary)
			})
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Objective to classify")
	route.register(cmd)

	return cmd
}
