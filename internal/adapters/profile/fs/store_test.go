package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/operate-cli/internal/domain"
)

func TestStoreInspectStates(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore()

	missing := filepath.Join(root, "missing_Profile")
	status, err := store.Inspect(context.Background(), missing)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileFirstTime, status)

	empty := filepath.Join(root, "empty_Profile")
	require.NoError(t, os.Mkdir(empty, 0o700))
	status, err = store.Inspect(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileFirstTime, status)

	ready := filepath.Join(root, "ready_Profile")
	require.NoError(t, os.MkdirAll(filepath.Join(ready, "Default"), 0o700))
	status, err = store.Inspect(context.Background(), ready)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileReady, status)

	file := filepath.Join(root, "file_Profile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	status, err = store.Inspect(context.Background(), file)
	require.Error(t, err)
	assert.Equal(t, domain.ProfileError, status)
}

func TestStoreEnsureCreatesPrivateDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "SelfOperatingComputer_Profile")
	store := NewStore()

	require.NoError(t, store.Ensure(context.Background(), path))
	require.NoError(t, store.Ensure(context.Background(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestStoreRejectsInvalidPaths(t *testing.T) {
	t.Parallel()

	store := NewStore()
	for _, path := range []string{"", "  ", "relative/profile"} {
		_, err := store.Inspect(context.Background(), path)
		assert.Error(t, err, path)
		assert.Error(t, store.Ensure(context.Background(), path), path)
	}
}

func TestStoreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore().Inspect(ctx, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, NewStore().Ensure(ctx, t.TempDir()), context.Canceled)
}
