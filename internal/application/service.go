package application

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

type ServiceDeps struct {
	Classifier ports.TaskClassifier
	Loop       *ActionLoop
	Browser    *BrowserDispatcher
	Runs       ports.RunRepository
	IDs        ports.IDGenerator
	Clock      ports.Clock
	Reporter   ports.Reporter
	Logger     *zap.Logger
}

// Service runs objectives end to end: classify, route, execute and record.
type Service struct {
	classifier ports.TaskClassifier
	loop       *ActionLoop
	browser    *BrowserDispatcher
	runs       ports.RunRepository
	ids        ports.IDGenerator
	clock      ports.Clock
	reporter   ports.Reporter
	logger     *zap.Logger
}

func NewService(deps ServiceDeps) *Service {
	if deps.Classifier == nil {
		deps.Classifier = NewRuleClassifier()
	}
	if deps.IDs == nil {
		deps.IDs = ports.UUIDGenerator{}
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Reporter == nil {
		deps.Reporter = ports.NopReporter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Service{
		classifier: deps.Classifier,
		loop:       deps.Loop,
		browser:    deps.Browser,
		runs:       deps.Runs,
		ids:        deps.IDs,
		clock:      deps.Clock,
		reporter:   deps.Reporter,
		logger:     deps.Logger.With(zap.String("component", "run_service")),
	}
}

type RunRequest struct {
	Objective  string
	Model      string
	Overrides  RouteOverrides
	ProfileDir string
}

// Run executes one objective. Task failures end up in the returned record;
// only invalid requests are returned as errors.
func (s *Service) Run(ctx context.Context, req RunRequest) (domain.RunRecord, error) {
	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		return domain.RunRecord{}, domain.ErrEmptyObjective
	}
	if err := req.Overrides.Validate(); err != nil {
		return domain.RunRecord{}, err
	}

	record := domain.RunRecord{
		ID:        domain.RunID(s.ids.NewID()),
		Objective: objective,
		Model:     req.Model,
		StartedAt: s.clock.Now(),
	}

	classification := s.Classify(ctx, objective)
	record.TaskType = classification.TaskType
	record.Confidence = classification.Confidence

	router := NewRouter(req.Overrides)
	if classification.TaskType == domain.TaskTypeSequential {
		record.Tasks = s.runSequential(ctx, req, router, classification)
	} else {
		route := router.Route(classification)
		s.reporter.Report(domain.Event{
			Kind:    domain.EventRoute,
			Order:   1,
			Total:   1,
			Message: fmt.Sprintf("%s task (confidence %.2f)", classification.TaskType, classification.Confidence),
			Detail:  fmt.Sprintf("%s: %s", route.Executor, route.Reason),
		})
		record.Tasks = []domain.TaskOutcome{
			s.runTask(ctx, req, taskSpec{
				order:       1,
				total:       1,
				description: objective,
				result:      classification,
				route:       route,
			}),
		}
	}

	record.Outcome = aggregateOutcome(record.Tasks)
	for _, task := range record.Tasks {
		if task.Error != "" {
			record.Error = task.Error
			break
		}
	}
	record.FinishedAt = s.clock.Now()

	if s.runs != nil {
		if err := s.runs.Save(ctx, record); err != nil {
			s.logger.Warn("persist run history", zap.String("run_id", string(record.ID)), zap.Error(err))
		}
	}

	return record, nil
}

// Classify consults the configured classifier and falls back to the keyword
// check when it fails or returns an invalid result.
func (s *Service) Classify(ctx context.Context, objective string) domain.ClassificationResult {
	result, err := s.classifier.ClassifyTask(ctx, objective)
	if err == nil {
		err = result.Validate()
	}
	if err != nil {
		s.logger.Warn("classification failed, using keyword fallback", zap.Error(err))
		s.reporter.Report(domain.Event{
			Kind:    domain.EventWarning,
			Message: "Classification failed, using keyword fallback",
			Detail:  err.Error(),
		})
		return KeywordFallback(objective, err)
	}

	return result
}

// runSequential executes subtasks strictly in order and stops at the first
// failure. Subtasks after the failure are recorded as skipped.
func (s *Service) runSequential(ctx context.Context, req RunRequest, router *Router, result domain.ClassificationResult) []domain.TaskOutcome {
	routes := router.RouteSubtasks(result)
	total := len(routes)
	s.reporter.Report(domain.Event{
		Kind:    domain.EventInfo,
		Total:   total,
		Message: fmt.Sprintf("Sequential task detected with %d subtasks", total),
	})

	outcomes := make([]domain.TaskOutcome, 0, total)
	failed := false
	for _, r := range routes {
		subtask := r.SubTask
		if failed {
			outcomes = append(outcomes, domain.TaskOutcome{
				Order:       subtask.Order,
				Description: subtask.Description,
				TaskType:    subtask.TaskType,
				Confidence:  subtask.Confidence,
				Executor:    r.Route.Executor,
				Outcome:     domain.OutcomeSkipped,
			})
			continue
		}

		s.reporter.Report(domain.Event{
			Kind:    domain.EventRoute,
			Order:   subtask.Order,
			Total:   total,
			Message: subtask.Description,
			Detail:  fmt.Sprintf("%s: %s", r.Route.Executor, r.Route.Reason),
		})
		s.logger.Info("subtask started",
			zap.Int("order", subtask.Order),
			zap.String("executor", string(r.Route.Executor)),
			zap.Strings("dependencies", subtask.Dependencies))

		outcome := s.runTask(ctx, req, taskSpec{
			order:       subtask.Order,
			total:       total,
			description: subtask.Description,
			result:      subtask.Classification(),
			route:       r.Route,
		})
		outcomes = append(outcomes, outcome)

		s.logger.Info("subtask finished", zap.Int("order", subtask.Order), zap.String("outcome", string(outcome.Outcome)))
		if !outcome.Succeeded() {
			failed = true
		}
	}

	return outcomes
}

type taskSpec struct {
	order       int
	total       int
	description string
	result      domain.ClassificationResult
	route       Route
}

func (s *Service) runTask(ctx context.Context, req RunRequest, spec taskSpec) domain.TaskOutcome {
	outcome := domain.TaskOutcome{
		Order:       spec.order,
		Description: spec.description,
		TaskType:    spec.result.TaskType,
		Confidence:  spec.result.Confidence,
		Executor:    spec.route.Executor,
	}

	switch spec.route.Executor {
	case domain.ExecutorBrowser:
		s.runBrowser(ctx, req, spec, &outcome)
	default:
		s.runDesktop(ctx, req, spec, &outcome)
	}

	kind := domain.EventComplete
	if !outcome.Succeeded() {
		kind = domain.EventError
	}
	s.reporter.Report(domain.Event{
		Kind:    kind,
		Order:   spec.order,
		Total:   spec.total,
		Message: string(outcome.Outcome),
		Detail:  firstNonEmpty(outcome.Error, outcome.Summary),
	})

	return outcome
}

func (s *Service) runDesktop(ctx context.Context, req RunRequest, spec taskSpec, outcome *domain.TaskOutcome) {
	if s.loop == nil {
		outcome.Outcome = domain.OutcomeFailed
		outcome.Error = "desktop executor is not configured"
		return
	}

	loop := s.loop.Run(ctx, LoopRequest{
		Objective: spec.description,
		Model:     req.Model,
		Order:     spec.order,
		Total:     spec.total,
	})
	outcome.Outcome = domain.OutcomeForLoop(loop)
	outcome.Summary = loop.Summary
	outcome.Error = loop.ErrorText()
	outcome.Iterations = loop.Iterations
}

func (s *Service) runBrowser(ctx context.Context, req RunRequest, spec taskSpec, outcome *domain.TaskOutcome) {
	if s.browser == nil {
		outcome.Outcome = domain.OutcomeFailed
		outcome.Error = "browser executor is not configured"
		return
	}

	result := s.browser.Run(ctx, BrowserDispatch{
		Objective:  spec.description,
		Model:      req.Model,
		SessionID:  s.ids.NewID(),
		ProfileDir: req.ProfileDir,
	})
	outcome.Actions = result

	final, _ := result.Final()
	outcome.Summary = final.Description
	outcome.Error = final.ErrorMessage
	switch {
	case result.Succeeded():
		outcome.Outcome = domain.OutcomeSucceeded
	case result.FallbackRequired():
		outcome.Outcome = domain.OutcomeFallbackRequired
	default:
		outcome.Outcome = domain.OutcomeFailed
		if outcome.Error == "" {
			outcome.Error = final.Description
		}
	}
}

func aggregateOutcome(tasks []domain.TaskOutcome) domain.Outcome {
	if len(tasks) == 0 {
		return domain.OutcomeFailed
	}
	for _, task := range tasks {
		if task.Outcome != domain.OutcomeSucceeded {
			return task.Outcome
		}
	}

	return domain.OutcomeSucceeded
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
