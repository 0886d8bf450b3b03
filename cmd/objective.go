package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// resolveObjective prefers --prompt, then positional arguments, then a line
// read from stdin.
func resolveObjective(cmd *cobra.Command, prompt string, args []string) (string, error) {
	if strings.TrimSpace(prompt) != "" {
		return prompt, nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if _, err := fmt.Fprint(cmd.OutOrStdout(), "What would you like the computer to do? "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read objective: %w", err)
	}

	return strings.TrimSpace(line), nil
}
