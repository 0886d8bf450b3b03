package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bnema/operate-cli/internal/domain"
)

var (
	profileReadyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
	profileMissingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	profileErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

func newProfileCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the Chrome profile that keeps browser sign-ins",
	}

	cmd.AddCommand(newProfileStatusCmd(c), newProfileSetupCmd(c))

	return cmd
}

func newProfileStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the managed Chrome profile is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}

			return writeProfile(cmd, c.asJSON, app.profiles.Status(cmd.Context()))
		},
	}
}

func newProfileSetupCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Open Chrome on the managed profile so you can sign in to your accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.load(cmd)
			if err != nil {
				return err
			}

			if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Sign in to the services you need in the Chrome window, then press Enter here."); err != nil {
				return err
			}

			profile, err := app.profiles.Setup(cmd.Context(), func() error {
				_, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			})
			if err != nil {
				return err
			}

			return writeProfile(cmd, c.asJSON, profile)
		},
	}
}

func writeProfile(cmd *cobra.Command, asJSON bool, profile domain.ChromeProfile) error {
	if asJSON {
		return writeJSON(cmd, profile)
	}

	style := profileErrorStyle
	switch profile.Status {
	case domain.ProfileReady:
		style = profileReadyStyle
	case domain.ProfileFirstTime:
		style = profileMissingStyle
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\npath: %s\n%s\n", profile.Name, style.Render(string(profile.Status)), profile.Path, profile.Message)
	return err
}
