package report

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/operate-cli/internal/application"
	"github.com/bnema/operate-cli/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	view   func(styles) string
	styles styles
	output string
}

func newModel(view func(styles) string) model {
	return model{view: view, styles: newStyles()}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func render(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

func RenderSummary(summary application.ClassificationSummary) (string, error) {
	return render(func(s styles) string {
		return lipgloss.JoinVertical(lipgloss.Left, summaryLines(summary, s)...)
	})
}

func RenderRun(record domain.RunRecord) (string, error) {
	return render(func(s styles) string {
		return lipgloss.JoinVertical(lipgloss.Left, runLines(record, s)...)
	})
}

func RenderHistory(records []domain.RunRecord) (string, error) {
	return render(func(s styles) string {
		return lipgloss.JoinVertical(lipgloss.Left, historyLines(records, s)...)
	})
}
