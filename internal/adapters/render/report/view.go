package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/operate-cli/internal/application"
	"github.com/bnema/operate-cli/internal/domain"
)

const confidenceBarWidth = 20

func summaryLines(summary application.ClassificationSummary, s styles) []string {
	result := summary.Classification
	lines := []string{
		s.title.Render("Task Classification"),
		s.header.Render(summary.Objective),
		field(s, "type", string(result.TaskType)),
		lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render("confidence:"), " ", confidenceBar(result.Confidence, s), " ", s.detail.Render(fmt.Sprintf("%.2f", result.Confidence))),
		field(s, "reasoning", result.Reasoning),
	}

	if len(result.DetectedPatterns) > 0 {
		lines = append(lines, field(s, "patterns", strings.Join(result.DetectedPatterns, ", ")))
	}
	if result.FallbackRecommendation != nil {
		lines = append(lines, field(s, "fallback", string(*result.FallbackRecommendation)))
	}
	lines = append(lines,
		field(s, "recommendation", summary.Recommendation),
		field(s, "executor", fmt.Sprintf("%s (%s)", summary.Route.Executor, summary.Route.Reason)),
	)

	if len(summary.Subtasks) > 0 {
		lines = append(lines, s.section.Render(s.title.Render(fmt.Sprintf("Subtasks (%d)", len(summary.Subtasks)))))
		for _, routed := range summary.Subtasks {
			lines = append(lines, subtaskLine(routed, s))
		}
	}

	return lines
}

func subtaskLine(routed application.SubtaskRoute, s styles) string {
	subtask := routed.SubTask
	parts := []string{
		s.task.Render(fmt.Sprintf("%d. %s", subtask.Order, subtask.Description)),
		s.detail.Render(fmt.Sprintf("   %s %.2f -> %s", subtask.TaskType, subtask.Confidence, routed.Route.Executor)),
	}
	if len(subtask.Dependencies) > 0 {
		parts = append(parts, s.header.Render("   needs: "+strings.Join(subtask.Dependencies, ", ")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func runLines(record domain.RunRecord, s styles) []string {
	lines := []string{
		s.title.Render("Run " + string(record.ID)),
		s.header.Render(record.Objective),
		field(s, "model", record.Model),
		field(s, "type", fmt.Sprintf("%s (%.2f)", record.TaskType, record.Confidence)),
		lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render("outcome:"), " ", outcomeLabel(record.Outcome, s)),
	}
	if !record.StartedAt.IsZero() {
		lines = append(lines, field(s, "started", record.StartedAt.Local().Format(time.DateTime)))
	}
	if d := record.Duration(); d > 0 {
		lines = append(lines, field(s, "duration", d.Round(100*time.Millisecond).String()))
	}
	if record.Error != "" {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render("error:"), " ", s.failure.Render(record.Error)))
	}

	for _, task := range record.Tasks {
		lines = append(lines, s.section.Render(taskBlock(task, s)))
	}

	return lines
}

func taskBlock(task domain.TaskOutcome, s styles) string {
	parts := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			s.task.Render(fmt.Sprintf("%d. %s", task.Order, task.Description)),
			" ",
			outcomeLabel(task.Outcome, s),
		),
		s.detail.Render(fmt.Sprintf("   %s %.2f via %s", task.TaskType, task.Confidence, task.Executor)),
	}
	if task.Iterations > 0 {
		parts = append(parts, s.header.Render(fmt.Sprintf("   iterations: %d", task.Iterations)))
	}
	if task.Summary != "" {
		parts = append(parts, s.detail.Render("   "+task.Summary))
	}
	if task.Error != "" {
		parts = append(parts, s.failure.Render("   "+task.Error))
	}
	for _, action := range task.Actions {
		parts = append(parts, actionLine(action, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func actionLine(action domain.ActionRecord, s styles) string {
	marker := s.success.Render("+")
	if !action.Success {
		marker = s.failure.Render("x")
	}
	text := action.Description
	if action.Step > 0 {
		text = fmt.Sprintf("step %d: %s", action.Step, text)
	}
	line := "   " + marker + " " + s.detail.Render(text)
	if action.FallbackRequired {
		line += " " + s.warning.Render("[fallback required]")
	}

	return line
}

func historyLines(records []domain.RunRecord, s styles) []string {
	lines := []string{
		s.title.Render("Run History"),
		s.header.Render(fmt.Sprintf("runs: %d", len(records))),
	}
	if len(records) == 0 {
		return append(lines, s.empty.Render("No runs recorded yet."))
	}

	for _, record := range records {
		started := "-"
		if !record.StartedAt.IsZero() {
			started = record.StartedAt.Local().Format(time.DateTime)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			s.header.Render(string(record.ID)),
			"  ",
			s.detail.Render(started),
			"  ",
			outcomeLabel(record.Outcome, s),
			"  ",
			s.detail.Render(truncate(record.Objective, 60)),
		))
	}

	return lines
}

func field(s styles, label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label+":"), " ", s.detail.Render(value))
}

func outcomeLabel(outcome domain.Outcome, s styles) string {
	switch outcome {
	case domain.OutcomeSucceeded:
		return s.success.Render(string(outcome))
	case domain.OutcomeSkipped, domain.OutcomeFallbackRequired:
		return s.warning.Render(string(outcome))
	case "":
		return s.empty.Render("unknown")
	default:
		return s.failure.Render(string(outcome))
	}
}

func confidenceBar(confidence float64, s styles) string {
	filled := int(math.Round(confidenceBarWidth * math.Max(0, math.Min(1, confidence))))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", confidenceBarWidth-filled)),
		s.barBracket.Render("]"),
	)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit-3]) + "..."
}
