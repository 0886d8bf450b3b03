package ports

import (
	"context"
	"time"

	"github.com/bnema/operate-cli/internal/domain"
)

// ProfileLauncher opens a visible browser on a profile so the user can sign in,
// and returns once wait returns or the timeout elapses.
type ProfileLauncher interface {
	LaunchForSignIn(ctx context.Context, profileDir string, startURL string, timeout time.Duration, wait func() error) error
}

// ProfileStore inspects and prepares browser profile directories on disk.
type ProfileStore interface {
	Inspect(ctx context.Context, path string) (domain.ProfileStatus, error)
	Ensure(ctx context.Context, path string) error
}
