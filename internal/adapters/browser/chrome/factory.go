package chrome

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/ports"
)

// Factory builds one Agent per browser dispatch. The browser itself starts on
// the agent's first Run, once the profile directory is known.
type Factory struct {
	launch  Launcher
	planner StepPlanner
	cfg     AgentConfig
	clock   ports.Clock
	logger  *zap.Logger
}

var _ ports.BrowserAgentFactory = (*Factory)(nil)

func NewFactory(launch Launcher, planner StepPlanner, cfg AgentConfig, clock ports.Clock, logger *zap.Logger) *Factory {
	return &Factory{launch: launch, planner: planner, cfg: cfg, clock: clock, logger: logger}
}

func (f *Factory) NewAgent(ctx context.Context, model string) (ports.BrowserAgent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return NewAgent(f.launch, f.planner, model, f.cfg, f.clock, f.logger), nil
}

// ProfileLauncher opens a visible browser on a profile for manual sign-in.
type ProfileLauncher struct {
	launch Launcher
	logger *zap.Logger
}

var _ ports.ProfileLauncher = (*ProfileLauncher)(nil)

func NewProfileLauncher(launch Launcher, logger *zap.Logger) *ProfileLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProfileLauncher{launch: launch, logger: logger.With(zap.String("component", "profile_launcher"))}
}

// LaunchForSignIn returns when wait returns, the timeout elapses or ctx is
// done; the browser is closed in every case so the profile is flushed.
func (l *ProfileLauncher) LaunchForSignIn(ctx context.Context, profileDir string, startURL string, timeout time.Duration, wait func() error) error {
	driver, err := l.launch(ctx, profileDir, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			l.logger.Warn("close sign-in browser", zap.Error(err))
		}
	}()

	if err := driver.Navigate(ctx, startURL); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		l.logger.Info("sign-in window timed out", zap.Duration("timeout", timeout))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
