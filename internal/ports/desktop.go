package ports

import "context"

// DesktopInput performs synchronous input on the local desktop.
type DesktopInput interface {
	Press(ctx context.Context, keys []string) error
	Write(ctx context.Context, text string) error
	Click(ctx context.Context, x, y float64) error
}

type ScreenCapturer interface {
	Capture(ctx context.Context) ([]byte, error)
}
