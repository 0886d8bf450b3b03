package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const (
	DefaultProfileName  = "SelfOperatingComputer"
	DefaultSetupTimeout = 5 * time.Minute
	signInURL           = "https://accounts.google.com/"
)

type ProfileConfig struct {
	Name    string
	BaseDir string
	Timeout time.Duration
}

// ProfileService manages the persistent browser profile that keeps sign-ins
// across runs.
type ProfileService struct {
	store    ports.ProfileStore
	launcher ports.ProfileLauncher
	cfg      ProfileConfig
	logger   *zap.Logger
}

func NewProfileService(store ports.ProfileStore, launcher ports.ProfileLauncher, cfg ProfileConfig, logger *zap.Logger) *ProfileService {
	if cfg.Name == "" {
		cfg.Name = DefaultProfileName
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSetupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProfileService{
		store:    store,
		launcher: launcher,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "profile_service")),
	}
}

func (s *ProfileService) Path() string {
	return filepath.Join(s.cfg.BaseDir, s.cfg.Name+"_Profile")
}

func (s *ProfileService) Status(ctx context.Context) domain.ChromeProfile {
	profile := domain.ChromeProfile{Name: s.cfg.Name, Path: s.Path()}

	status, err := s.store.Inspect(ctx, profile.Path)
	if err != nil {
		profile.Status = domain.ProfileError
		profile.Message = fmt.Sprintf("inspect profile: %v", err)
		return profile
	}

	profile.Status = status
	switch status {
	case domain.ProfileReady:
		profile.Message = "Profile ready, sign-ins are reused"
	case domain.ProfileFirstTime:
		profile.Message = "No profile found - first-time setup required"
	default:
		profile.Message = "Profile is not usable"
	}

	return profile
}

// Setup creates the profile directory and opens a visible browser on the
// sign-in page until wait returns or the setup timeout elapses.
func (s *ProfileService) Setup(ctx context.Context, wait func() error) (domain.ChromeProfile, error) {
	path := s.Path()
	if err := s.store.Ensure(ctx, path); err != nil {
		return domain.ChromeProfile{}, fmt.Errorf("create profile directory: %w", err)
	}

	if err := s.launcher.LaunchForSignIn(ctx, path, signInURL, s.cfg.Timeout, wait); err != nil {
		return domain.ChromeProfile{}, fmt.Errorf("launch profile setup: %w", err)
	}

	return s.Status(ctx), nil
}

// ResolveForRun returns the profile directory the browser agent should use.
// An explicit path wins, then a ready managed profile; otherwise the browser
// starts fresh and the returned warning says so.
func (s *ProfileService) ResolveForRun(ctx context.Context, explicit string) (string, string) {
	if explicit != "" {
		return explicit, ""
	}

	profile := s.Status(ctx)
	if profile.Usable() {
		return profile.Path, ""
	}

	s.logger.Debug("managed profile not usable", zap.String("status", string(profile.Status)), zap.String("path", profile.Path))
	return "", fmt.Sprintf("%s; starting browser without a saved profile (run `operate profile setup`)", profile.Message)
}
