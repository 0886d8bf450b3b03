package xdotool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/operate-cli/internal/ports"
)

const typeDelayMillis = "12"

var ErrUnavailable = errors.New("desktop command unavailable")

type runFunc func(ctx context.Context, name string, args ...string) (stdout []byte, stderr string, err error)

// Desktop drives the X11 desktop through xdotool and captures the screen with
// ImageMagick's import.
type Desktop struct {
	run runFunc

	mu            sync.Mutex
	width, height int
}

var (
	_ ports.DesktopInput   = (*Desktop)(nil)
	_ ports.ScreenCapturer = (*Desktop)(nil)
)

func NewDesktop() *Desktop {
	return &Desktop{run: runCommand}
}

// Press sends keys as one chord, e.g. ["ctrl", "s"] becomes "ctrl+s".
func (d *Desktop) Press(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chord := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			chord = append(chord, keysym(key))
		}
	}
	if len(chord) == 0 {
		return errors.New("no keys to press")
	}

	_, stderr, err := d.run(ctx, "xdotool", "key", strings.Join(chord, "+"))
	if err != nil {
		return formatError("key", err, stderr)
	}

	return nil
}

func (d *Desktop) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := d.run(ctx, "xdotool", "type", "--delay", typeDelayMillis, "--", text)
	if err != nil {
		return formatError("type", err, stderr)
	}

	return nil
}

// Click moves to normalized screen coordinates in [0,1] and clicks the
// primary button.
func (d *Desktop) Click(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("click coordinates (%.3f, %.3f) outside [0,1]", x, y)
	}

	width, height, err := d.geometry(ctx)
	if err != nil {
		return err
	}

	px := strconv.Itoa(int(math.Round(x * float64(width-1))))
	py := strconv.Itoa(int(math.Round(y * float64(height-1))))

	_, stderr, err := d.run(ctx, "xdotool", "mousemove", "--sync", px, py, "click", "1")
	if err != nil {
		return formatError("click", err, stderr)
	}

	return nil
}

func (d *Desktop) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stdout, stderr, err := d.run(ctx, "import", "-window", "root", "png:-")
	if err != nil {
		return nil, formatError("capture", err, stderr)
	}
	if len(stdout) == 0 {
		return nil, errors.New("screen capture returned no data")
	}

	return stdout, nil
}

func (d *Desktop) geometry(ctx context.Context) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.width > 0 && d.height > 0 {
		return d.width, d.height, nil
	}

	stdout, stderr, err := d.run(ctx, "xdotool", "getdisplaygeometry")
	if err != nil {
		return 0, 0, formatError("getdisplaygeometry", err, stderr)
	}

	fields := strings.Fields(string(stdout))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(stdout)))
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid display width %q", fields[0])
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid display height %q", fields[1])
	}

	d.width, d.height = width, height
	return width, height, nil
}

var keysyms = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"tab":       "Tab",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"ctrl":      "ctrl",
	"control":   "ctrl",
	"alt":       "alt",
	"shift":     "shift",
	"win":       "super",
	"cmd":       "super",
	"command":   "super",
}

// keysym maps planner key names to X keysyms; unknown names pass through.
func keysym(key string) string {
	if mapped, ok := keysyms[strings.ToLower(key)]; ok {
		return mapped
	}

	return key
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrUnavailable, name)
		}
		return nil, "", fmt.Errorf("locate %s command: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.Bytes(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("desktop %s: %w", op, err)
	}

	return fmt.Errorf("desktop %s: %w: %s", op, err, stderr)
}
