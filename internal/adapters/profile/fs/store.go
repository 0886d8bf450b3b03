package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const (
	profileDirMode = 0o700
	// Chrome writes the first user's data under this directory once it has
	// been launched on a user-data dir.
	defaultUserDir = "Default"
)

// Store inspects Chrome user-data directories on the local filesystem.
type Store struct{}

var _ ports.ProfileStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Inspect(ctx context.Context, path string) (domain.ProfileStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProfileError, err
	}

	cleaned, err := cleanPath(path)
	if err != nil {
		return domain.ProfileError, err
	}

	info, err := os.Stat(cleaned)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ProfileFirstTime, nil
		}
		return domain.ProfileError, fmt.Errorf("stat profile %q: %w", cleaned, err)
	}
	if !info.IsDir() {
		return domain.ProfileError, fmt.Errorf("profile %q is not a directory", cleaned)
	}

	userInfo, err := os.Stat(filepath.Join(cleaned, defaultUserDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ProfileFirstTime, nil
		}
		return domain.ProfileError, fmt.Errorf("stat profile user data %q: %w", cleaned, err)
	}
	if !userInfo.IsDir() {
		return domain.ProfileError, fmt.Errorf("profile user data in %q is not a directory", cleaned)
	}

	return domain.ProfileReady, nil
}

func (s *Store) Ensure(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cleaned, err := cleanPath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cleaned, profileDirMode); err != nil {
		return fmt.Errorf("create profile directory %q: %w", cleaned, err)
	}

	return nil
}

func cleanPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("profile path is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("profile path %q must be absolute", path)
	}

	return cleaned, nil
}
