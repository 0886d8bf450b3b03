package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/operate-cli/internal/application"
	"github.com/bnema/operate-cli/internal/domain"
)

func TestRenderSummarySequential(t *testing.T) {
	summary := application.ClassificationSummary{
		Objective: "open microsoft word, save the file, open gmail and mail it to x@y.com",
		Classification: domain.ClassificationResult{
			TaskType:         domain.TaskTypeSequential,
			Confidence:       0.9,
			Reasoning:        "Sequential task detected with 3 subtasks",
			DetectedPatterns: []string{"sequential_indicators"},
		},
		Recommendation: "Route to sequential task executor",
		Route:          application.Route{Executor: domain.ExecutorDesktop, Reason: "sequential"},
		Subtasks: []application.SubtaskRoute{
			{
				SubTask: domain.SubTask{Description: "open microsoft word", TaskType: domain.TaskTypeDesktop, Confidence: 0.8, Order: 1, Dependencies: []string{}},
				Route:   application.Route{Executor: domain.ExecutorDesktop},
			},
			{
				SubTask: domain.SubTask{Description: "open gmail and mail it to x@y.com", TaskType: domain.TaskTypeBrowser, Confidence: 0.9, Order: 2, Dependencies: []string{"file"}},
				Route:   application.Route{Executor: domain.ExecutorBrowser},
			},
		},
	}

	output, err := RenderSummary(summary)
	require.NoError(t, err)
	assert.Contains(t, output, "Task Classification")
	assert.Contains(t, output, "type: sequential")
	assert.Contains(t, output, "0.90")
	assert.Contains(t, output, "Route to sequential task executor")
	assert.Contains(t, output, "Subtasks (2)")
	assert.Contains(t, output, "1. open microsoft word")
	assert.Contains(t, output, "browser 0.90 -> browser")
	assert.Contains(t, output, "needs: file")
}

func TestRenderSummaryAmbiguousShowsFallback(t *testing.T) {
	output, err := RenderSummary(application.ClassificationSummary{
		Objective: "do something",
		Classification: domain.ClassificationResult{
			TaskType:               domain.TaskTypeAmbiguous,
			Confidence:             0.3,
			FallbackRecommendation: domain.Fallback(domain.TaskTypeDesktop),
		},
		Recommendation: "Ambiguous task - route to desktop system with fallback enabled",
		Route:          application.Route{Executor: domain.ExecutorDesktop, Reason: "fallback"},
	})
	require.NoError(t, err)
	assert.Contains(t, output, "fallback: desktop")
	assert.NotContains(t, output, "Subtasks")
}

func TestRenderRun(t *testing.T) {
	started := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	output, err := RenderRun(domain.RunRecord{
		ID:         "run-1",
		Objective:  "open gmail",
		Model:      "llava",
		TaskType:   domain.TaskTypeBrowser,
		Confidence: 0.85,
		Outcome:    domain.OutcomeFallbackRequired,
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
		Error:      "chrome crashed",
		Tasks: []domain.TaskOutcome{{
			Order:       1,
			Description: "open gmail",
			TaskType:    domain.TaskTypeBrowser,
			Confidence:  0.85,
			Executor:    domain.ExecutorBrowser,
			Outcome:     domain.OutcomeFallbackRequired,
			Actions: domain.TaskResult{
				{Action: domain.ActionBrowserStep, Description: "navigate https://mail.google.com/", Success: true, Step: 1},
				{Action: domain.ActionFallbackToOCR, Description: "Browser automation failed, desktop fallback required: chrome crashed", FallbackRequired: true},
			},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Run run-1")
	assert.Contains(t, output, "fallback_required")
	assert.Contains(t, output, "duration: 12s")
	assert.Contains(t, output, "error: chrome crashed")
	assert.Contains(t, output, "step 1: navigate https://mail.google.com/")
	assert.Contains(t, output, "[fallback required]")
}

func TestRenderHistory(t *testing.T) {
	output, err := RenderHistory(nil)
	require.NoError(t, err)
	assert.Contains(t, output, "runs: 0")
	assert.Contains(t, output, "No runs recorded yet.")

	output, err = RenderHistory([]domain.RunRecord{
		{ID: "run-2", Objective: "open calculator", Outcome: domain.OutcomeSucceeded},
		{ID: "run-1", Objective: "a very long objective that keeps going well past the column width of the history table", Outcome: domain.OutcomeMaxIterations},
	})
	require.NoError(t, err)
	assert.Contains(t, output, "runs: 2")
	assert.Contains(t, output, "run-2")
	assert.Contains(t, output, "succeeded")
	assert.Contains(t, output, "max_iterations")
	assert.Contains(t, output, "...")
}
