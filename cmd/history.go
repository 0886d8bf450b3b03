package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/operate-cli/internal/adapters/render/report"
	"github.com/bnema/operate-cli/internal/domain"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}

	cmd.AddCommand(newHistoryListCmd(c), newHistoryShowCmd(c))

	return cmd
}

func newHistoryListCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}

			records, err := app.service.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if c.asJSON {
				if records == nil {
					records = []domain.RunRecord{}
				}
				return writeJSON(cmd, records)
			}

			return writeRendered(cmd, "history", func() (string, error) {
				return report.RenderHistory(records)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func newHistoryShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full report of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}

			record, err := app.service.GetRun(cmd.Context(), domain.RunID(args[0]))
			if err != nil {
				return err
			}

			if c.asJSON {
				return writeJSON(cmd, record)
			}

			return writeRendered(cmd, "run report", func() (string, error) {
				return report.RenderRun(record)
			})
		},
	}
}
