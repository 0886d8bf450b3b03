package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

type browserWorkDoneMsg struct {
	err error
}

type browserSpinnerModel struct {
	spinner spinner.Model
	label   string
	err     error
	done    bool
}

func newBrowserSpinnerModel(label string) browserSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return browserSpinnerModel{
		spinner: s,
		label:   label,
	}
}

func (m browserSpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m browserSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case browserWorkDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m browserSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runBrowserSpinner shows a spinner on output until work returns. The work
// result is always awaited, even when the spinner program fails.
func runBrowserSpinner(ctx context.Context, output io.Writer, label string, work func(context.Context) error) error {
	p := tea.NewProgram(
		newBrowserSpinnerModel(label),
		tea.WithInput(nil),
		tea.WithOutput(output),
	)

	done := make(chan error, 1)
	go func() {
		err := work(ctx)
		done <- err
		p.Send(browserWorkDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		_, _ = fmt.Fprintf(output, "spinner: %v\n", err)
	}

	return <-done
}

// spinnerAgentFactory decorates browser agents so that their Run, the one
// long wait of a browser task, shows a spinner.
type spinnerAgentFactory struct {
	next ports.BrowserAgentFactory
	out  io.Writer
}

func (f spinnerAgentFactory) NewAgent(ctx context.Context, model string) (ports.BrowserAgent, error) {
	agent, err := f.next.NewAgent(ctx, model)
	if err != nil {
		return nil, err
	}

	return spinnerAgent{BrowserAgent: agent, out: f.out}, nil
}

type spinnerAgent struct {
	ports.BrowserAgent
	out io.Writer
}

func (a spinnerAgent) Run(ctx context.Context, run ports.BrowserRun) (domain.TaskResult, error) {
	var result domain.TaskResult
	err := runBrowserSpinner(ctx, a.out, "Browser agent working...", func(ctx context.Context) error {
		var runErr error
		result, runErr = a.BrowserAgent.Run(ctx, run)
		return runErr
	})

	return result, err
}
