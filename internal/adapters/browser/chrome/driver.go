package chrome

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 900
	scrollStepPixels      = 600
)

// Driver is the page-level control surface the agent needs from a browser.
// Click coordinates are normalized to the viewport.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Click(ctx context.Context, x, y float64) error
	Type(ctx context.Context, text string) error
	Key(ctx context.Context, key string) error
	Scroll(ctx context.Context, down bool) error
	URL(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a browser on profileDir, or on a throwaway profile when
// profileDir is empty.
type Launcher func(ctx context.Context, profileDir string, headless bool) (Driver, error)

type ChromeConfig struct {
	ExecPath       string
	ViewportWidth  int
	ViewportHeight int
	NoSandbox      bool
}

type chromeDriver struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	width       int
	height      int
	logger      *zap.Logger
	mu          sync.Mutex
	closeOnce   sync.Once
}

// NewChromeLauncher returns a Launcher backed by a local Chrome or Chromium.
func NewChromeLauncher(cfg ChromeConfig, logger *zap.Logger) Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = defaultViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = defaultViewportHeight
	}

	return func(ctx context.Context, profileDir string, headless bool) (Driver, error) {
		return launchChrome(ctx, cfg, profileDir, headless, logger)
	}
}

func launchChrome(ctx context.Context, cfg ChromeConfig, profileDir string, headless bool, logger *zap.Logger) (*chromeDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if profileDir != "" {
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	driver := &chromeDriver{
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
		width:       cfg.ViewportWidth,
		height:      cfg.ViewportHeight,
		logger:      logger.With(zap.String("component", "chromedp_driver")),
	}

	// The first Run allocates the browser and binds it to the context it is
	// given, so it must run on the browser context itself.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(browserCtx)
	if !stop() || ctx.Err() != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	driver.logger.Info("browser started",
		zap.Bool("headless", headless),
		zap.String("profile", profileDir),
	)

	return driver, nil
}

// run executes actions on the browser tab while honoring the caller's ctx.
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("navigating", zap.String("url", url))
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *chromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}

	return buf, nil
}

func (d *chromeDriver) Click(ctx context.Context, x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	px := x * float64(d.width)
	py := y * float64(d.height)
	d.logger.Debug("clicking", zap.Float64("x", px), zap.Float64("y", py))
	return d.run(ctx, chromedp.MouseClickXY(px, py))
}

func (d *chromeDriver) Type(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.run(ctx, chromedp.KeyEvent(text))
}

var namedKeys = map[string]string{
	"enter":     kb.Enter,
	"return":    kb.Enter,
	"tab":       kb.Tab,
	"escape":    kb.Escape,
	"esc":       kb.Escape,
	"backspace": kb.Backspace,
	"delete":    kb.Delete,
	"up":        kb.ArrowUp,
	"down":      kb.ArrowDown,
	"left":      kb.ArrowLeft,
	"right":     kb.ArrowRight,
	"pageup":    kb.PageUp,
	"pagedown":  kb.PageDown,
	"home":      kb.Home,
	"end":       kb.End,
}

func (d *chromeDriver) Key(ctx context.Context, key string) error {
	mapped, ok := namedKeys[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.run(ctx, chromedp.KeyEvent(mapped))
}

func (d *chromeDriver) Scroll(ctx context.Context, down bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delta := scrollStepPixels
	if !down {
		delta = -delta
	}

	return d.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", delta), nil))
}

func (d *chromeDriver) URL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}

	return url, nil
}

func (d *chromeDriver) Close() error {
	d.closeOnce.Do(func() {
		d.logger.Debug("closing browser")
		d.cancel()
		d.allocCancel()
	})

	return nil
}
