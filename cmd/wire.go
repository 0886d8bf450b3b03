package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/adapters/browser/chrome"
	chainclassifier "github.com/bnema/operate-cli/internal/adapters/classifier/chain"
	"github.com/bnema/operate-cli/internal/adapters/classifier/llm"
	"github.com/bnema/operate-cli/internal/adapters/desktop/xdotool"
	"github.com/bnema/operate-cli/internal/adapters/ocr"
	visionplanner "github.com/bnema/operate-cli/internal/adapters/planner/ollama"
	profilefs "github.com/bnema/operate-cli/internal/adapters/profile/fs"
	tomlrepo "github.com/bnema/operate-cli/internal/adapters/repo/toml"
	"github.com/bnema/operate-cli/internal/application"
	"github.com/bnema/operate-cli/internal/config"
	"github.com/bnema/operate-cli/internal/ports"
)

type app struct {
	cfg      config.Config
	service  *application.Service
	profiles *application.ProfileService
	ocrPool  *ocr.Pool
	logger   *zap.Logger
}

type wireOptions struct {
	homeDir     string
	out         io.Writer
	logger      *zap.Logger
	quiet       bool
	interactive bool
}

func wireApp(opts wireOptions) (*app, error) {
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	v, err := config.New(opts.homeDir)
	if err != nil {
		return nil, fmt.Errorf("wire configuration: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("wire configuration: %w", err)
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire run repository: %w", err)
	}

	ollamaURL, err := url.Parse(cfg.OllamaHost)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", cfg.OllamaHost, err)
	}
	client := api.NewClient(ollamaURL, http.DefaultClient)

	var classifier ports.TaskClassifier = application.NewRuleClassifier()
	if cfg.Classifier.LLMEnabled {
		classifier, err = chainclassifier.NewClassifierChecked(llm.NewClassifier(client, cfg.Classifier.LLMModel, logger), classifier)
		if err != nil {
			return nil, fmt.Errorf("wire classifier chain: %w", err)
		}
	}

	var reporter ports.Reporter = ports.NopReporter{}
	if !opts.quiet {
		reporter = newConsoleReporter(opts.out)
	}

	clock := ports.SystemClock{}
	pool := ocr.NewPool(ocr.NewTesseractFactory(), clock, logger)
	desktop := xdotool.NewDesktop()
	planner := visionplanner.NewPlanner(client, desktop, pool, ports.UUIDGenerator{}, visionplanner.Config{
		SupportedModels: cfg.SupportedModels,
		OCRLanguages:    cfg.OCR.Languages,
	}, logger)
	loop := application.NewActionLoop(planner, desktop, reporter, logger, application.ActionLoopConfig{
		MaxIterations: cfg.Loop.MaxIterations,
		Pace:          cfg.Loop.Pace,
	})

	launch := chrome.NewChromeLauncher(chrome.ChromeConfig{ExecPath: cfg.Browser.ChromePath}, logger)
	var agents ports.BrowserAgentFactory = chrome.NewFactory(launch, chrome.NewOllamaStepPlanner(client, logger), chrome.AgentConfig{
		MaxSteps:    cfg.Browser.MaxSteps,
		StepTimeout: cfg.Browser.StepTimeout,
		Headless:    cfg.Browser.Headless,
	}, clock, logger)
	if opts.interactive && !opts.quiet {
		agents = spinnerAgentFactory{next: agents, out: opts.out}
	}

	service := application.NewService(application.ServiceDeps{
		Classifier: classifier,
		Loop:       loop,
		Browser:    application.NewBrowserDispatcher(agents, clock, logger),
		Runs:       repo,
		IDs:        ports.UUIDGenerator{},
		Clock:      clock,
		Reporter:   reporter,
		Logger:     logger,
	})

	profiles := application.NewProfileService(profilefs.NewStore(), chrome.NewProfileLauncher(launch, logger), application.ProfileConfig{
		Name: cfg.Browser.ProfileName,
	}, logger)

	return &app{
		cfg:      cfg,
		service:  service,
		profiles: profiles,
		ocrPool:  pool,
		logger:   logger,
	}, nil
}

// evictIdleReaders drops OCR readers that stayed unused for the configured
// idle period until ctx is done.
func (a *app) evictIdleReaders(ctx context.Context) {
	maxAge := a.cfg.OCR.IdleEviction
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(maxAge / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.ocrPool.EvictIdle(maxAge)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
