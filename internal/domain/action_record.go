package domain

import "time"

const (
	ActionBrowserStep   = "browser_action"
	ActionTaskCompleted = "task_completed"
	ActionError         = "error"
	ActionFallbackToOCR = "fallback_to_ocr"
)

// ActionRecord is the executor-neutral record of one performed action. The
// last record of a TaskResult summarizes the overall outcome.
type ActionRecord struct {
	Action              string    `json:"action"`
	Description         string    `json:"description"`
	Success             bool      `json:"success"`
	Step                int       `json:"step,omitempty"`
	Target              string    `json:"target,omitempty"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	FallbackRecommended bool      `json:"fallback_recommended,omitempty"`
	FallbackRequired    bool      `json:"fallback_required,omitempty"`
	AgentType           string    `json:"agent_type,omitempty"`
	Timestamp           time.Time `json:"timestamp,omitzero"`
}

type TaskResult []ActionRecord

// Final returns the summarizing record and false when the result is empty.
func (r TaskResult) Final() (ActionRecord, bool) {
	if len(r) == 0 {
		return ActionRecord{}, false
	}

	return r[len(r)-1], true
}

func (r TaskResult) Succeeded() bool {
	final, ok := r.Final()
	if !ok {
		return false
	}

	return final.Success && final.Action != ActionError && !final.FallbackRequired
}

func (r TaskResult) FallbackRequired() bool {
	final, ok := r.Final()
	return ok && final.FallbackRequired
}
