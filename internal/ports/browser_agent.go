package ports

import (
	"context"

	"github.com/bnema/operate-cli/internal/domain"
)

type BrowserRun struct {
	Objective  string
	Model      string
	SessionID  string
	ProfileDir string
}

// BrowserAgent executes a whole objective inside a real browser and owns its
// own step loop. Close must release the browser process and is safe to call
// more than once.
type BrowserAgent interface {
	Run(ctx context.Context, run BrowserRun) (domain.TaskResult, error)
	Close() error
}

type BrowserAgentFactory interface {
	NewAgent(ctx context.Context, model string) (BrowserAgent, error)
}
