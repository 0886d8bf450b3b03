package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bnema/operate-cli/internal/adapters/render/report"
	"github.com/bnema/operate-cli/internal/application"
	"github.com/bnema/operate-cli/internal/domain"
)

var errRunUnsuccessful = errors.New("run did not succeed")

var warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

type routeFlags struct {
	forceBrowser   bool
	disableBrowser bool
	threshold      float64
}

func (f *routeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.forceBrowser, "browser-agent", false, "Send every single task to the browser agent")
	cmd.Flags().BoolVar(&f.disableBrowser, "no-browser-agent", false, "Never use the browser agent")
	cmd.Flags().Float64Var(&f.threshold, "browser-threshold", application.DefaultBrowserThreshold, "Minimum confidence for routing a browser task to the browser agent")
}

func (f *routeFlags) overrides(cmd *cobra.Command, app *app) application.RouteOverrides {
	threshold := app.cfg.Browser.Threshold
	if cmd.Flags().Changed("browser-threshold") {
		threshold = f.threshold
	}

	return application.RouteOverrides{
		ForceBrowser:     f.forceBrowser,
		DisableBrowser:   f.disableBrowser,
		BrowserThreshold: threshold,
	}
}

func newRunCmd(c *cli) *cobra.Command {
	var (
		model         string
		prompt        string
		chromeProfile string
		route         routeFlags
	)

	cmd := &cobra.Command{
		Use:   "run [objective...]",
		Short: "Carry out an objective on the desktop or in the browser",
		Long:  "run classifies the objective, routes it (or each of its sequential subtasks) to the browser agent or the desktop action loop, prints a report and records the run in the history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}

			objective, err := resolveObjective(cmd, prompt, args)
			if err != nil {
				return err
			}
			if model == "" {
				model = app.cfg.Model
			}
			if chromeProfile == "" {
				chromeProfile = app.cfg.Browser.Profile
			}

			overrides := route.overrides(cmd, app)
			profileDir := chromeProfile
			if !overrides.DisableBrowser {
				var warning string
				profileDir, warning = app.profiles.ResolveForRun(cmd.Context(), chromeProfile)
				if warning != "" && !c.asJSON {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render(warning))
				}
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go app.evictIdleReaders(ctx)

			record, err := app.service.Run(ctx, application.RunRequest{
				Objective:  objective,
				Model:      model,
				Overrides:  overrides,
				ProfileDir: profileDir,
			})
			if err != nil {
				return err
			}

			if c.asJSON {
				err = writeJSON(cmd, record)
			} else {
				err = writeRendered(cmd, "run report", func() (string, error) {
					return report.RenderRun(record)
				})
			}
			if err != nil {
				return err
			}

			if record.Outcome != domain.OutcomeSucceeded {
				return fmt.Errorf("%w: run %s ended with %s", errRunUnsuccessful, record.ID, record.Outcome)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Vision model served by ollama (default from config)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Objective to carry out")
	cmd.Flags().StringVar(&chromeProfile, "chrome-profile", "", "Chrome user data directory to reuse sign-ins from")
	route.register(cmd)

	return cmd
}
