package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ocrHeaderStyle = lipgloss.NewStyle().Bold(true)

func newOCRCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr",
		Short: "Inspect the OCR reader pool",
	}

	cmd.AddCommand(newOCRStatsCmd(c))

	return cmd
}

func newOCRStatsCmd(c *cli) *cobra.Command {
	var languages []string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Warm up an OCR reader and print pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}
			if len(languages) == 0 {
				languages = app.cfg.OCR.Languages
			}

			if _, err := app.ocrPool.Reader(cmd.Context(), languages); err != nil {
				app.logger.Warn("ocr warm-up failed", zap.Strings("languages", languages), zap.Error(err))
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: ocr warm-up failed: %v\n", err)
			}

			stats := app.ocrPool.Stats()
			if c.asJSON {
				return writeJSON(cmd, stats)
			}

			lines := []string{
				ocrHeaderStyle.Render("OCR Reader Pool"),
				fmt.Sprintf("readers: %d", stats.TotalReaders),
				fmt.Sprintf("total creation time: %s", stats.TotalCreationTime.Round(time.Millisecond)),
				fmt.Sprintf("average creation time: %s", stats.AverageCreationTime.Round(time.Millisecond)),
				fmt.Sprintf("total uses: %d", stats.TotalUses),
			}
			for _, reader := range stats.Readers {
				lines = append(lines, fmt.Sprintf("  %s  created in %s  uses %d", reader.Key, reader.CreatedIn.Round(time.Millisecond), reader.Uses))
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return err
		},
	}

	cmd.Flags().StringSliceVar(&languages, "languages", nil, "OCR languages to warm up (default from config)")

	return cmd
}
