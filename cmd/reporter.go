package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/operate-cli/internal/domain"
)

type reporterStyles struct {
	prefix  lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	route   lipgloss.Style
	success lipgloss.Style
	detail  lipgloss.Style
}

// consoleReporter prints run progress events as styled lines.
type consoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles reporterStyles
}

func newConsoleReporter(out io.Writer) *consoleReporter {
	return &consoleReporter{
		out: out,
		styles: reporterStyles{
			prefix:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
			info:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
			warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
			route:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
			success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
			detail:  lipgloss.NewStyle().Faint(true),
		},
	}
}

func (r *consoleReporter) Report(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := r.styleFor(event.Kind).Render(event.Message)
	if event.Order > 0 && event.Total > 0 {
		line = r.styles.prefix.Render(fmt.Sprintf("[%d/%d]", event.Order, event.Total)) + " " + line
	}
	if event.Detail != "" {
		line += " " + r.styles.detail.Render(event.Detail)
	}

	_, _ = fmt.Fprintln(r.out, line)
}

func (r *consoleReporter) styleFor(kind domain.EventKind) lipgloss.Style {
	switch kind {
	case domain.EventWarning:
		return r.styles.warning
	case domain.EventError:
		return r.styles.failure
	case domain.EventRoute:
		return r.styles.route
	case domain.EventComplete:
		return r.styles.success
	default:
		return r.styles.info
	}
}
