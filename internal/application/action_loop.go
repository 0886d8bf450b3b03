package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const (
	MaxLoopIterations = 10
	DefaultPace       = time.Second
)

type ActionLoopConfig struct {
	MaxIterations int
	Pace          time.Duration
}

// ActionLoop drives the desktop path: it asks the planner for operations,
// performs them one at a time and stops on done, on the first failure or when
// the iteration cap is reached.
type ActionLoop struct {
	planner  ports.Planner
	input    ports.DesktopInput
	reporter ports.Reporter
	logger   *zap.Logger
	cfg      ActionLoopConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewActionLoop(planner ports.Planner, input ports.DesktopInput, reporter ports.Reporter, logger *zap.Logger, cfg ActionLoopConfig) *ActionLoop {
	if reporter == nil {
		reporter = ports.NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIterations <= 0 || cfg.MaxIterations > MaxLoopIterations {
		cfg.MaxIterations = MaxLoopIterations
	}
	if cfg.Pace < 0 {
		cfg.Pace = 0
	}

	return &ActionLoop{
		planner:  planner,
		input:    input,
		reporter: reporter,
		logger:   logger.With(zap.String("component", "action_loop")),
		cfg:      cfg,
		sleep:    sleepContext,
	}
}

type LoopRequest struct {
	Objective string
	Model     string
	Order     int
	Total     int
}

// terminal describes why a loop stopped.
type terminal struct {
	state   domain.LoopState
	reason  domain.FailureReason
	err     error
	summary string
}

// Run executes the loop for one (sub)task. It always returns a terminal
// outcome; failures are reported through the outcome rather than an error.
func (l *ActionLoop) Run(ctx context.Context, req LoopRequest) domain.LoopOutcome {
	session := domain.NewSession("")
	state := domain.LoopRunning
	logger := l.logger.With(zap.Int("task", req.Order))

	var stop *terminal
	for stop == nil {
		plan, err := l.planner.GetNextAction(ctx, ports.PlanRequest{
			Model:     req.Model,
			History:   session.History,
			Objective: req.Objective,
			SessionID: session.ID,
		})
		if err != nil {
			reason := domain.FailurePlanning
			if errors.Is(err, domain.ErrModelNotRecognized) {
				reason = domain.FailureModelNotRecognized
			}
			logger.Error("planner failed", zap.Error(err))
			stop = &terminal{state: domain.LoopFailed, reason: reason, err: fmt.Errorf("%w: %w", domain.ErrPlanningFailed, err)}
			break
		}
		if plan.SessionID != "" {
			session.ID = plan.SessionID
		}

		stop = l.execute(ctx, plan.Operations, req, logger)

		session.Append(domain.Message{Role: domain.RoleUser, Content: plan.Prompt})
		if encoded, err := domain.EncodeOperations(plan.Operations); err == nil {
			session.Append(domain.Message{Role: domain.RoleAssistant, Content: string(encoded)})
		}
		session.LoopCount++

		if stop == nil && session.LoopCount >= l.cfg.MaxIterations {
			logger.Warn("loop iteration cap reached", zap.Int("iterations", session.LoopCount))
			stop = &terminal{
				state:  domain.LoopFailed,
				reason: domain.FailureMaxIterations,
				err:    fmt.Errorf("%w: stopped after %d iterations", domain.ErrMaxIterations, session.LoopCount),
			}
		}
	}

	next, err := state.Transition(stop.state)
	if err != nil {
		logger.Error("invalid loop transition", zap.Error(err))
		next = domain.LoopFailed
	}

	return domain.LoopOutcome{
		State:      next,
		Reason:     stop.reason,
		Iterations: session.LoopCount,
		Summary:    stop.summary,
		SessionID:  session.ID,
		Err:        stop.err,
	}
}

// execute performs one batch in order. It returns nil when the batch ran to
// the end without reaching a terminal state.
func (l *ActionLoop) execute(ctx context.Context, ops []domain.Operation, req LoopRequest, logger *zap.Logger) *terminal {
	for _, op := range ops {
		if err := l.sleep(ctx, l.cfg.Pace); err != nil {
			return &terminal{state: domain.LoopFailed, reason: domain.FailureInterrupted, err: fmt.Errorf("interrupted: %w", err)}
		}

		switch o := op.(type) {
		case domain.UnknownOperation:
			logger.Error("unknown operation from planner",
				zap.String("operation", o.Name),
				zap.ByteString("payload", o.Raw))
			l.report(domain.EventError, req, fmt.Sprintf("Unknown operation %q", o.Name), string(o.Raw))
			return &terminal{
				state:  domain.LoopFailed,
				reason: domain.FailureUnknownOperation,
				err:    fmt.Errorf("%w: %q", domain.ErrUnknownOperation, o.Name),
			}
		case domain.DoneOperation:
			l.report(domain.EventComplete, req, o.Thought(), domain.DescribeOperation(o))
			return &terminal{state: domain.LoopDone, summary: o.Summary}
		}

		l.report(domain.EventOperation, req, op.Thought(), domain.DescribeOperation(op))
		if err := l.perform(ctx, op); err != nil {
			logger.Error("desktop input failed", zap.String("operation", string(op.Kind())), zap.Error(err))
			return &terminal{state: domain.LoopFailed, reason: domain.FailureInput, err: fmt.Errorf("%s: %w", op.Kind(), err)}
		}
	}

	return nil
}

func (l *ActionLoop) perform(ctx context.Context, op domain.Operation) error {
	switch o := op.(type) {
	case domain.KeyOperation:
		if o.Op == domain.OperationHotkey {
			return l.input.Press(ctx, o.Keys)
		}
		for _, key := range o.Keys {
			if err := l.input.Press(ctx, []string{key}); err != nil {
				return err
			}
		}
		return nil
	case domain.WriteOperation:
		return l.input.Write(ctx, o.Content)
	case domain.ClickOperation:
		return l.input.Click(ctx, o.X, o.Y)
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownOperation, op)
	}
}

func (l *ActionLoop) report(kind domain.EventKind, req LoopRequest, message, detail string) {
	l.reporter.Report(domain.Event{
		Kind:    kind,
		Order:   req.Order,
		Total:   req.Total,
		Message: message,
		Detail:  detail,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
