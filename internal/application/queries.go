package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/operate-cli/internal/domain"
)

var errHistoryUnavailable = errors.New("run history is not configured")

type ClassificationSummary struct {
	Objective      string                      `json:"objective"`
	Classification domain.ClassificationResult `json:"classification"`
	Recommendation string                      `json:"recommendation"`
	Route          Route                       `json:"route"`
	Subtasks       []SubtaskRoute              `json:"subtasks,omitempty"`
}

// Summarize classifies objective and reports where it would be routed without
// executing anything.
func (s *Service) Summarize(ctx context.Context, objective string, overrides RouteOverrides) (ClassificationSummary, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return ClassificationSummary{}, domain.ErrEmptyObjective
	}
	if err := overrides.Validate(); err != nil {
		return ClassificationSummary{}, err
	}

	result := s.Classify(ctx, objective)
	router := NewRouter(overrides)
	summary := ClassificationSummary{
		Objective:      objective,
		Classification: result,
		Recommendation: RoutingRecommendation(result),
		Route:          router.Route(result),
	}
	if result.TaskType == domain.TaskTypeSequential {
		summary.Subtasks = router.RouteSubtasks(result)
	}

	return summary, nil
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.runs == nil {
		return nil, errHistoryUnavailable
	}

	records, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return records, nil
}

func (s *Service) GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	if s.runs == nil {
		return domain.RunRecord{}, errHistoryUnavailable
	}

	record, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run by id: %w", err)
	}

	return record, nil
}
