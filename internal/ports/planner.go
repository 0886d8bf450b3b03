package ports

import (
	"context"

	"github.com/bnema/operate-cli/internal/domain"
)

type PlanRequest struct {
	Model     string
	History   []domain.Message
	Objective string
	SessionID string
}

// Plan is one batch of operations returned by the vision planner. Prompt is the
// user turn that produced it, appended to the conversation history alongside
// the operations.
type Plan struct {
	Operations []domain.Operation
	SessionID  string
	Prompt     string
}

// Planner turns the current screen and conversation into the next operations.
// It returns domain.ErrModelNotRecognized for unsupported models.
type Planner interface {
	GetNextAction(ctx context.Context, req PlanRequest) (Plan, error)
}
