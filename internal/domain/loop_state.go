package domain

import "fmt"

type LoopState string

const (
	LoopRunning LoopState = "running"
	LoopDone    LoopState = "done"
	LoopFailed  LoopState = "failed"
)

func (s LoopState) IsTerminal() bool {
	return s == LoopDone || s == LoopFailed
}

// Transition validates a loop state change. Only Running may move, and only
// to a terminal state.
func (s LoopState) Transition(to LoopState) (LoopState, error) {
	if s != LoopRunning {
		return s, fmt.Errorf("invalid loop transition %s -> %s: %s is terminal", s, to, s)
	}
	if !to.IsTerminal() {
		return s, fmt.Errorf("invalid loop transition %s -> %s", s, to)
	}

	return to, nil
}

type FailureReason string

const (
	FailureNone               FailureReason = ""
	FailurePlanning           FailureReason = "planning_failed"
	FailureModelNotRecognized FailureReason = "model_not_recognized"
	FailureUnknownOperation   FailureReason = "unknown_operation"
	FailureMaxIterations      FailureReason = "max_iterations"
	FailureInterrupted        FailureReason = "interrupted"
	FailureInput              FailureReason = "input_failed"
)

// LoopOutcome is the terminal report of one desktop action loop.
type LoopOutcome struct {
	State      LoopState     `json:"state"`
	Reason     FailureReason `json:"reason,omitempty"`
	Iterations int           `json:"iterations"`
	Summary    string        `json:"summary,omitempty"`
	SessionID  string        `json:"session_id,omitempty"`
	Err        error         `json:"-"`
}

func (o LoopOutcome) Succeeded() bool {
	return o.State == LoopDone
}

func (o LoopOutcome) ErrorText() string {
	if o.Err == nil {
		return ""
	}

	return o.Err.Error()
}
