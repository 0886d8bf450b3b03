package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

// cli holds the persistent flags and the lazily wired application. Wiring
// waits for flag parsing so that --verbose and --json shape the logger and
// the reporter.
type cli struct {
	verbose bool
	asJSON  bool
	app     *app
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "operate",
		Short:         "Operate the desktop and the browser from a natural-language objective",
		Long:          "operate classifies an objective, routes it to a browser agent or to a vision-driven desktop loop, and keeps a history of every run.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Write debug logs to stderr")
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "Render JSON output")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(c),
		newClassifyCmd(c),
		newHistoryCmd(c),
		newProfileCmd(c),
		newOCRCmd(c),
	)

	return rootCmd
}

func (c *cli) load(cmd *cobra.Command) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	wired, err := wireApp(wireOptions{
		homeDir:     homeDir,
		out:         cmd.OutOrStdout(),
		logger:      newLogger(cmd.ErrOrStderr(), c.verbose),
		quiet:       c.asJSON,
		interactive: isTerminal(cmd.OutOrStdout()),
	})
	if err != nil {
		return nil, err
	}

	c.app = wired
	return wired, nil
}
