package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
	"github.com/bnema/operate-cli/internal/ports/mocks"
)

type serviceFixture struct {
	planner  *mocks.MockPlanner
	input    *mocks.MockDesktopInput
	agents   *mocks.MockBrowserAgentFactory
	runs     *mocks.MockRunRepository
	reporter *recordingReporter
	service  *Service
}

func newServiceFixture(t *testing.T, classifier ports.TaskClassifier) serviceFixture {
	t.Helper()

	f := serviceFixture{
		planner:  mocks.NewMockPlanner(t),
		input:    mocks.NewMockDesktopInput(t),
		agents:   mocks.NewMockBrowserAgentFactory(t),
		runs:     mocks.NewMockRunRepository(t),
		reporter: &recordingReporter{},
	}
	logger := zaptest.NewLogger(t)
	clock := fixedClock{now: testNow}

	f.service = NewService(ServiceDeps{
		Classifier: classifier,
		Loop:       NewActionLoop(f.planner, f.input, f.reporter, logger, ActionLoopConfig{}),
		Browser:    NewBrowserDispatcher(f.agents, clock, logger),
		Runs:       f.runs,
		IDs:        &sequenceIDs{ids: []string{"run-1", "session-1", "session-2"}},
		Clock:      clock,
		Reporter:   f.reporter,
		Logger:     logger,
	})

	return f
}

func TestServiceRunBrowserObjective(t *testing.T) {
	f := newServiceFixture(t, nil)
	agent := mocks.NewMockBrowserAgent(t)

	f.agents.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), ports.BrowserRun{
		Objective:  "Navigate to https://youtube.com",
		Model:      "llava",
		SessionID:  "session-1",
		ProfileDir: "/tmp/p",
	}).Return(domain.TaskResult{
		{Action: domain.ActionTaskCompleted, Description: "youtube open", Success: true},
	}, nil).Once()
	agent.On("Close").Return(nil).Once()
	f.runs.On("Save", mockAnyContext(), mock.MatchedBy(func(r domain.RunRecord) bool {
		return r.ID == "run-1" && r.Outcome == domain.OutcomeSucceeded
	})).Return(nil).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective:  "  Navigate to https://youtube.com ",
		Model:      "llava",
		Overrides:  DefaultRouteOverrides(),
		ProfileDir: "/tmp/p",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RunID("run-1"), record.ID)
	assert.Equal(t, "Navigate to https://youtube.com", record.Objective)
	assert.Equal(t, domain.TaskTypeBrowser, record.TaskType)
	assert.Equal(t, domain.OutcomeSucceeded, record.Outcome)
	require.Len(t, record.Tasks, 1)
	assert.Equal(t, domain.ExecutorBrowser, record.Tasks[0].Executor)
	assert.Equal(t, "youtube open", record.Tasks[0].Summary)
	assert.Equal(t, testNow, record.StartedAt)
	assert.Empty(t, record.Error)
	f.planner.AssertNotCalled(t, "GetNextAction", mock.Anything, mock.Anything)
}

func TestServiceRunBrowserFailureSurfacesWithoutDesktopFallback(t *testing.T) {
	f := newServiceFixture(t, nil)
	agent := mocks.NewMockBrowserAgent(t)

	f.agents.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), mock.Anything).Return(nil, errors.New("navigation timeout")).Once()
	agent.On("Close").Return(nil).Once()
	f.runs.On("Save", mockAnyContext(), mock.Anything).Return(nil).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective: "Navigate to https://youtube.com",
		Model:     "llava",
		Overrides: DefaultRouteOverrides(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFallbackRequired, record.Outcome)
	assert.Equal(t, "navigation timeout", record.Error)
	f.planner.AssertNotCalled(t, "GetNextAction", mock.Anything, mock.Anything)
	f.input.AssertNotCalled(t, "Click", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceRunDesktopObjective(t *testing.T) {
	f := newServiceFixture(t, nil)

	f.planner.On("GetNextAction", mockAnyContext(), mock.MatchedBy(func(req ports.PlanRequest) bool {
		return req.Objective == "Open calculator and compute 5+5" && req.Model == "llava"
	})).Return(ports.Plan{Operations: []domain.Operation{
		domain.WriteOperation{Content: "5+5="},
		domain.DoneOperation{Summary: "10"},
	}}, nil).Once()
	f.input.On("Write", mockAnyContext(), "5+5=").Return(nil).Once()
	f.runs.On("Save", mockAnyContext(), mock.Anything).Return(nil).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective: "Open calculator and compute 5+5",
		Model:     "llava",
		Overrides: DefaultRouteOverrides(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeDesktop, record.TaskType)
	assert.Equal(t, domain.OutcomeSucceeded, record.Outcome)
	require.Len(t, record.Tasks, 1)
	assert.Equal(t, domain.ExecutorDesktop, record.Tasks[0].Executor)
	assert.Equal(t, 1, record.Tasks[0].Iterations)
	assert.Equal(t, "10", record.Tasks[0].Summary)
}

func TestServiceRunSequentialFailsFast(t *testing.T) {
	f := newServiceFixture(t, nil)

	f.planner.On("GetNextAction", mockAnyContext(), mock.Anything).Return(ports.Plan{}, domain.ErrModelNotRecognized).Once()
	f.runs.On("Save", mockAnyContext(), mock.Anything).Return(nil).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective: "open notepad and then navigate to https://example.com",
		Model:     "bogus",
		Overrides: DefaultRouteOverrides(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeSequential, record.TaskType)
	assert.Equal(t, domain.OutcomeModelNotRecognized, record.Outcome)
	require.Len(t, record.Tasks, 2)
	assert.Equal(t, domain.OutcomeModelNotRecognized, record.Tasks[0].Outcome)
	assert.Equal(t, domain.OutcomeSkipped, record.Tasks[1].Outcome)
	assert.Equal(t, domain.ExecutorBrowser, record.Tasks[1].Executor)
	assert.Contains(t, record.Error, domain.ErrModelNotRecognized.Error())
	f.agents.AssertNotCalled(t, "NewAgent", mock.Anything, mock.Anything)
}

func TestServiceRunSequentialRoutesEachSubtask(t *testing.T) {
	f := newServiceFixture(t, nil)
	agent := mocks.NewMockBrowserAgent(t)

	f.planner.On("GetNextAction", mockAnyContext(), mock.MatchedBy(func(req ports.PlanRequest) bool {
		return req.Objective == "open notepad"
	})).Return(ports.Plan{Operations: []domain.Operation{domain.DoneOperation{Summary: "opened"}}}, nil).Once()
	f.agents.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), mock.MatchedBy(func(run ports.BrowserRun) bool {
		return run.Objective == "navigate to https://example.com"
	})).Return(domain.TaskResult{{Action: domain.ActionTaskCompleted, Description: "done", Success: true}}, nil).Once()
	agent.On("Close").Return(nil).Once()
	f.runs.On("Save", mockAnyContext(), mock.Anything).Return(nil).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective: "open notepad and then navigate to https://example.com",
		Model:     "llava",
		Overrides: DefaultRouteOverrides(),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSucceeded, record.Outcome)
	require.Len(t, record.Tasks, 2)
	assert.Equal(t, domain.ExecutorDesktop, record.Tasks[0].Executor)
	assert.Equal(t, domain.ExecutorBrowser, record.Tasks[1].Executor)
	assert.Contains(t, f.reporter.kinds(), domain.EventInfo)
}

func TestServiceRunRejectsInvalidRequests(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.service.Run(context.Background(), RunRequest{Objective: "   ", Overrides: DefaultRouteOverrides()})
	require.ErrorIs(t, err, domain.ErrEmptyObjective)

	_, err = f.service.Run(context.Background(), RunRequest{
		Objective: "open notepad",
		Overrides: RouteOverrides{ForceBrowser: true, DisableBrowser: true, BrowserThreshold: 0.6},
	})
	require.ErrorIs(t, err, domain.ErrConflictingRouteOverrides)
}

func TestServiceClassifierFailureUsesKeywordFallback(t *testing.T) {
	classifier := mocks.NewMockTaskClassifier(t)
	f := newServiceFixture(t, classifier)

	classifier.On("ClassifyTask", mockAnyContext(), "open notepad").
		Return(domain.ClassificationResult{}, domain.ErrClassifierUnavailable).Once()
	f.planner.On("GetNextAction", mockAnyContext(), mock.Anything).
		Return(ports.Plan{Operations: []domain.Operation{domain.DoneOperation{}}}, nil).Once()
	f.runs.On("Save", mockAnyContext(), mock.Anything).Return(errors.New("disk full")).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective: "open notepad",
		Model:     "llava",
		Overrides: DefaultRouteOverrides(),
	})

	require.NoError(t, err, "history persistence failures are logged, not returned")
	assert.Equal(t, domain.TaskTypeAmbiguous, record.TaskType)
	assert.Equal(t, domain.OutcomeSucceeded, record.Outcome)
	assert.Equal(t, domain.EventWarning, f.reporter.kinds()[0])
}

func TestServiceClassifyRejectsInvalidClassifierOutput(t *testing.T) {
	classifier := mocks.NewMockTaskClassifier(t)
	service := NewService(ServiceDeps{Classifier: classifier})

	classifier.On("ClassifyTask", mockAnyContext(), "visit youtube").
		Return(domain.ClassificationResult{TaskType: "teleport", Confidence: 2}, nil).Once()

	result := service.Classify(context.Background(), "visit youtube")

	assert.Equal(t, domain.TaskTypeAmbiguous, result.TaskType)
	assert.Equal(t, domain.TaskTypeBrowser, result.FallbackOr(domain.TaskTypeDesktop))
}

func TestServiceForceBrowserRoutesDesktopObjectiveToBrowser(t *testing.T) {
	f := newServiceFixture(t, nil)
	agent := mocks.NewMockBrowserAgent(t)

	f.agents.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), mock.Anything).
		Return(domain.TaskResult{{Action: domain.ActionTaskCompleted, Description: "done", Success: true}}, nil).Once()
	agent.On("Close").Return(nil).Once()
	f.runs.On("Save", mockAnyContext(), mock.Anything).Return(nil).Once()

	record, err := f.service.Run(context.Background(), RunRequest{
		Objective: "Open calculator and compute 5+5",
		Model:     "llava",
		Overrides: RouteOverrides{ForceBrowser: true, BrowserThreshold: 0.6},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ExecutorBrowser, record.Tasks[0].Executor)
}

func TestServiceSummarize(t *testing.T) {
	service := NewService(ServiceDeps{})

	summary, err := service.Summarize(context.Background(), "open notepad and then navigate to https://example.com", DefaultRouteOverrides())

	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeSequential, summary.Classification.TaskType)
	assert.Equal(t, "Route to sequential task executor", summary.Recommendation)
	require.Len(t, summary.Subtasks, 2)
	assert.Equal(t, domain.ExecutorDesktop, summary.Subtasks[0].Route.Executor)
	assert.Equal(t, domain.ExecutorBrowser, summary.Subtasks[1].Route.Executor)

	_, err = service.Summarize(context.Background(), "", DefaultRouteOverrides())
	assert.ErrorIs(t, err, domain.ErrEmptyObjective)
}

func TestServiceHistoryQueries(t *testing.T) {
	runs := mocks.NewMockRunRepository(t)
	service := NewService(ServiceDeps{Runs: runs})

	runs.On("List", mockAnyContext(), 5).Return([]domain.RunRecord{{ID: "a"}}, nil).Once()
	runs.On("GetByID", mockAnyContext(), domain.RunID("missing")).Return(domain.RunRecord{}, domain.ErrRunNotFound).Once()

	records, err := service.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = service.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = NewService(ServiceDeps{}).ListRuns(context.Background(), 5)
	assert.Error(t, err)
}
