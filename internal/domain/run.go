package domain

import "time"

type RunID string

type Outcome string

const (
	OutcomeSucceeded          Outcome = "succeeded"
	OutcomeFailed             Outcome = "failed"
	OutcomeMaxIterations      Outcome = "max_iterations"
	OutcomeFallbackRequired   Outcome = "fallback_required"
	OutcomeUnknownOperation   Outcome = "unknown_operation"
	OutcomeModelNotRecognized Outcome = "model_not_recognized"
	OutcomeSkipped            Outcome = "skipped"
)

// OutcomeForLoop maps a desktop loop terminal state to a run outcome.
func OutcomeForLoop(o LoopOutcome) Outcome {
	if o.Succeeded() {
		return OutcomeSucceeded
	}

	switch o.Reason {
	case FailureMaxIterations:
		return OutcomeMaxIterations
	case FailureUnknownOperation:
		return OutcomeUnknownOperation
	case FailureModelNotRecognized:
		return OutcomeModelNotRecognized
	default:
		return OutcomeFailed
	}
}

// TaskOutcome is the terminal state of one (sub)task.
type TaskOutcome struct {
	Order       int        `json:"order"`
	Description string     `json:"description"`
	TaskType    TaskType   `json:"task_type"`
	Confidence  float64    `json:"confidence"`
	Executor    Executor   `json:"executor"`
	Outcome     Outcome    `json:"outcome"`
	Summary     string     `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	Iterations  int        `json:"iterations,omitempty"`
	Actions     TaskResult `json:"actions,omitempty"`
}

func (o TaskOutcome) Succeeded() bool {
	return o.Outcome == OutcomeSucceeded
}

// RunRecord is the persisted history entry for one objective.
type RunRecord struct {
	ID         RunID         `json:"id"`
	Objective  string        `json:"objective"`
	Model      string        `json:"model"`
	TaskType   TaskType      `json:"task_type"`
	Confidence float64       `json:"confidence"`
	Outcome    Outcome       `json:"outcome"`
	Tasks      []TaskOutcome `json:"tasks"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Error      string        `json:"error,omitempty"`
}

func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}
