package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const (
	agentType          = "browser"
	defaultMaxSteps    = 25
	defaultStepTimeout = 60 * time.Second
)

var errUnknownStep = errors.New("unknown browser step")

type AgentConfig struct {
	MaxSteps    int
	StepTimeout time.Duration
	Headless    bool
}

// Agent runs a whole objective in one browser: it opens the most likely start
// page, then asks the step planner for one step at a time until the planner
// reports done or the step budget runs out.
type Agent struct {
	launch  Launcher
	planner StepPlanner
	model   string
	cfg     AgentConfig
	clock   ports.Clock
	logger  *zap.Logger

	mu     sync.Mutex
	driver Driver
	closed bool
}

var _ ports.BrowserAgent = (*Agent)(nil)

func NewAgent(launch Launcher, planner StepPlanner, model string, cfg AgentConfig, clock ports.Clock, logger *zap.Logger) *Agent {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = defaultStepTimeout
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{
		launch:  launch,
		planner: planner,
		model:   model,
		cfg:     cfg,
		clock:   clock,
		logger:  logger.With(zap.String("component", "browser_agent")),
	}
}

func (a *Agent) Run(ctx context.Context, run ports.BrowserRun) (domain.TaskResult, error) {
	driver, err := a.ensureDriver(ctx, run.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %w", domain.ErrBrowserAutomation, err)
	}

	model := run.Model
	if model == "" {
		model = a.model
	}
	logger := a.logger.With(zap.String("session", run.SessionID))

	var records domain.TaskResult
	var history []string
	step := 0

	if start := StartURL(run.Objective); start != "" {
		step++
		navigate := Step{Action: StepNavigate, URL: start, Reason: "open start page"}
		err := a.withTimeout(ctx, func(stepCtx context.Context) error {
			return driver.Navigate(stepCtx, start)
		})
		records = append(records, a.record(step, navigate, err))
		if err != nil {
			return records, fmt.Errorf("%w: navigate to %s: %w", domain.ErrBrowserAutomation, start, err)
		}
		history = append(history, describeStep(navigate))
	}

	for planned := 0; planned < a.cfg.MaxSteps; planned++ {
		var next Step
		err := a.withTimeout(ctx, func(stepCtx context.Context) error {
			screenshot, err := driver.Screenshot(stepCtx)
			if err != nil {
				return err
			}
			url, err := driver.URL(stepCtx)
			if err != nil {
				logger.Debug("page url unavailable", zap.Error(err))
			}

			next, err = a.planner.NextStep(stepCtx, StepRequest{
				Objective:  run.Objective,
				Model:      model,
				URL:        url,
				Screenshot: screenshot,
				History:    history,
			})
			return err
		})
		if err != nil {
			return records, fmt.Errorf("%w: plan step %d: %w", domain.ErrBrowserAutomation, step+1, err)
		}

		if next.Action == StepDone {
			summary := strings.TrimSpace(next.Summary)
			if summary == "" {
				summary = "Browser task completed"
			}
			records = append(records, domain.ActionRecord{
				Action:      domain.ActionTaskCompleted,
				Description: summary,
				Success:     true,
				AgentType:   agentType,
				Timestamp:   a.clock.Now(),
			})
			logger.Info("browser task completed", zap.Int("steps", step))
			return records, nil
		}

		step++
		err = a.withTimeout(ctx, func(stepCtx context.Context) error {
			return perform(stepCtx, driver, next)
		})
		records = append(records, a.record(step, next, err))
		if err != nil {
			return records, fmt.Errorf("%w: step %d: %w", domain.ErrBrowserAutomation, step, err)
		}
		history = append(history, describeStep(next))
	}

	logger.Warn("browser step budget exhausted", zap.Int("max_steps", a.cfg.MaxSteps))
	records = append(records, domain.ActionRecord{
		Action:      domain.ActionTaskCompleted,
		Description: fmt.Sprintf("step budget exhausted after %d steps", a.cfg.MaxSteps),
		Success:     false,
		AgentType:   agentType,
		Timestamp:   a.clock.Now(),
	})

	return records, nil
}

// Close stops the browser if one was launched. Calling it again is a no-op.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if a.driver == nil {
		return nil
	}

	return a.driver.Close()
}

func (a *Agent) ensureDriver(ctx context.Context, profileDir string) (Driver, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, errors.New("agent is closed")
	}
	if a.driver != nil {
		return a.driver, nil
	}

	// A signed-in profile is only useful with a visible window.
	headless := a.cfg.Headless && profileDir == ""
	driver, err := a.launch(ctx, profileDir, headless)
	if err != nil {
		return nil, err
	}
	a.driver = driver

	return driver, nil
}

func (a *Agent) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, a.cfg.StepTimeout)
	defer cancel()

	return fn(stepCtx)
}

func (a *Agent) record(step int, s Step, err error) domain.ActionRecord {
	record := domain.ActionRecord{
		Action:      domain.ActionBrowserStep,
		Description: describeStep(s),
		Success:     err == nil,
		Step:        step,
		Target:      s.target(),
		AgentType:   agentType,
		Timestamp:   a.clock.Now(),
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}

	return record
}

func perform(ctx context.Context, driver Driver, s Step) error {
	switch s.Action {
	case StepNavigate:
		if s.URL == "" {
			return errors.New("navigate step without url")
		}
		return driver.Navigate(ctx, s.URL)
	case StepClick:
		if s.X < 0 || s.X > 1 || s.Y < 0 || s.Y > 1 {
			return fmt.Errorf("click coordinates (%.3f, %.3f) outside [0,1]", s.X, s.Y)
		}
		return driver.Click(ctx, s.X, s.Y)
	case StepType:
		return driver.Type(ctx, s.Text)
	case StepKey:
		return driver.Key(ctx, s.Key)
	case StepScroll:
		return driver.Scroll(ctx, !strings.EqualFold(s.Direction, "up"))
	default:
		return fmt.Errorf("%w %q", errUnknownStep, s.Action)
	}
}

func describeStep(s Step) string {
	var detail string
	switch s.Action {
	case StepNavigate:
		detail = "navigate " + s.URL
	case StepClick:
		detail = fmt.Sprintf("click {x: %.3f, y: %.3f}", s.X, s.Y)
	case StepType:
		detail = fmt.Sprintf("type %q", s.Text)
	case StepKey:
		detail = "key " + s.Key
	case StepScroll:
		detail = "scroll " + strings.ToLower(s.Direction)
	default:
		detail = string(s.Action)
	}
	if s.Reason == "" {
		return detail
	}

	return detail + " (" + s.Reason + ")"
}
