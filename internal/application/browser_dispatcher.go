package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const browserAgentType = "browser"

type BrowserDispatch struct {
	Objective  string
	Model      string
	SessionID  string
	ProfileDir string
}

// BrowserDispatcher hands a whole objective to the browser agent and
// normalizes whatever comes back into a TaskResult. It never retries on the
// desktop path.
type BrowserDispatcher struct {
	agents ports.BrowserAgentFactory
	clock  ports.Clock
	logger *zap.Logger
}

func NewBrowserDispatcher(agents ports.BrowserAgentFactory, clock ports.Clock, logger *zap.Logger) *BrowserDispatcher {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BrowserDispatcher{
		agents: agents,
		clock:  clock,
		logger: logger.With(zap.String("component", "browser_dispatcher")),
	}
}

// Run always returns a non-empty result. When the agent fails or recommends a
// fallback, the last record is a fallback_to_ocr record with FallbackRequired
// set.
func (d *BrowserDispatcher) Run(ctx context.Context, req BrowserDispatch) domain.TaskResult {
	result := d.run(ctx, req)

	final, _ := result.Final()
	if final.Success || !(final.FallbackRecommended || final.Action == domain.ActionError) {
		return result
	}

	message := final.ErrorMessage
	if message == "" {
		message = final.Description
	}

	return append(result, domain.ActionRecord{
		Action:           domain.ActionFallbackToOCR,
		Description:      "Browser automation failed, desktop fallback required: " + message,
		Success:          false,
		ErrorMessage:     message,
		FallbackRequired: true,
		AgentType:        browserAgentType,
		Timestamp:        d.clock.Now(),
	})
}

func (d *BrowserDispatcher) run(ctx context.Context, req BrowserDispatch) (result domain.TaskResult) {
	logger := d.logger.With(zap.String("session_id", req.SessionID))

	agent, err := d.agents.NewAgent(ctx, req.Model)
	if err != nil {
		logger.Error("create browser agent", zap.Error(err))
		return domain.TaskResult{d.failure(fmt.Errorf("create browser agent: %w", err))}
	}
	defer func() {
		if closeErr := agent.Close(); closeErr != nil {
			logger.Warn("close browser agent", zap.Error(closeErr))
		}
	}()

	result, err = agent.Run(ctx, ports.BrowserRun{
		Objective:  req.Objective,
		Model:      req.Model,
		SessionID:  req.SessionID,
		ProfileDir: req.ProfileDir,
	})
	if err != nil {
		logger.Error("browser automation failed", zap.Error(err))
		return append(result, d.failure(err))
	}
	if len(result) == 0 {
		return domain.TaskResult{d.failure(fmt.Errorf("%w: agent returned no actions", domain.ErrBrowserAutomation))}
	}

	return result
}

func (d *BrowserDispatcher) failure(err error) domain.ActionRecord {
	return domain.ActionRecord{
		Action:              domain.ActionError,
		Description:         fmt.Sprintf("Browser automation failed: %v", err),
		Success:             false,
		ErrorMessage:        err.Error(),
		FallbackRecommended: true,
		AgentType:           browserAgentType,
		Timestamp:           d.clock.Now(),
	}
}
