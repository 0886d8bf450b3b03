package domain

import (
	"fmt"
	"slices"
)

type ClassificationResult struct {
	TaskType               TaskType  `json:"task_type"`
	Confidence             float64   `json:"confidence"`
	Reasoning              string    `json:"reasoning"`
	DetectedPatterns       []string  `json:"detected_patterns"`
	FallbackRecommendation *TaskType `json:"fallback_recommendation,omitempty"`
	Subtasks               []SubTask `json:"subtasks,omitempty"`
}

// SubTask is one ordered fragment of a sequential objective. Dependencies name
// artifacts produced by earlier subtasks; they are advisory and only ordering
// is enforced.
type SubTask struct {
	Description  string   `json:"description"`
	TaskType     TaskType `json:"task_type"`
	Confidence   float64  `json:"confidence"`
	Order        int      `json:"order"`
	Dependencies []string `json:"dependencies"`
	Reasoning    string   `json:"reasoning,omitempty"`

	FallbackRecommendation *TaskType `json:"fallback_recommendation,omitempty"`
}

// Classification returns the subtask as a standalone classification so that it
// can be routed like a top-level objective.
func (s SubTask) Classification() ClassificationResult {
	return ClassificationResult{
		TaskType:               s.TaskType,
		Confidence:             s.Confidence,
		Reasoning:              s.Reasoning,
		FallbackRecommendation: s.FallbackRecommendation,
	}
}

func Fallback(t TaskType) *TaskType {
	return &t
}

// FallbackOr returns the fallback recommendation, or def when none is set.
func (r ClassificationResult) FallbackOr(def TaskType) TaskType {
	if r.FallbackRecommendation == nil {
		return def
	}

	return *r.FallbackRecommendation
}

func (r ClassificationResult) Validate() error {
	if !r.TaskType.Valid() {
		return fmt.Errorf("invalid task type %q", r.TaskType)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", r.Confidence)
	}
	if len(r.Subtasks) > 0 && r.TaskType != TaskTypeSequential {
		return fmt.Errorf("subtasks are only allowed for %s results", TaskTypeSequential)
	}
	if r.TaskType == TaskTypeSequential && len(r.Subtasks) == 0 {
		return fmt.Errorf("%s result requires subtasks", TaskTypeSequential)
	}
	if r.FallbackRecommendation != nil {
		if r.TaskType != TaskTypeAmbiguous && r.TaskType != TaskTypeMixed {
			return fmt.Errorf("fallback recommendation is only allowed for %s and %s results", TaskTypeAmbiguous, TaskTypeMixed)
		}
		if !r.FallbackRecommendation.Valid() {
			return fmt.Errorf("invalid fallback recommendation %q", *r.FallbackRecommendation)
		}
	}

	for i, subtask := range r.Subtasks {
		if subtask.Order != i+1 {
			return fmt.Errorf("subtask %d has order %d", i+1, subtask.Order)
		}
		if !subtask.TaskType.Valid() {
			return fmt.Errorf("subtask %d has invalid task type %q", subtask.Order, subtask.TaskType)
		}
	}

	return nil
}

// OrderedSubtasks returns a copy of the subtasks sorted by ascending order.
func (r ClassificationResult) OrderedSubtasks() []SubTask {
	ordered := slices.Clone(r.Subtasks)
	slices.SortStableFunc(ordered, func(a, b SubTask) int {
		return a.Order - b.Order
	})

	return ordered
}
