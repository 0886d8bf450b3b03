package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/operate-cli/internal/domain"
)

var started = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T, historyPath string, limit int) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("history.path", historyPath)
	if limit > 0 {
		config.Set("history.limit", limit)
	}

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func sampleRun(id string, startedAt time.Time) domain.RunRecord {
	return domain.RunRecord{
		ID:         domain.RunID(id),
		Objective:  "open microsoft word, type 10 words, save the file, open gmail and mail it to x@y.com",
		Model:      "llava",
		TaskType:   domain.TaskTypeSequential,
		Confidence: 0.9,
		Outcome:    domain.OutcomeFallbackRequired,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(42 * time.Second),
		Error:      "chrome crashed",
		Tasks: []domain.TaskOutcome{
			{
				Order:       1,
				Description: "open microsoft word",
				TaskType:    domain.TaskTypeDesktop,
				Confidence:  0.8,
				Executor:    domain.ExecutorDesktop,
				Outcome:     domain.OutcomeSucceeded,
				Summary:     "word is open",
				Iterations:  2,
			},
			{
				Order:       2,
				Description: "open gmail and mail it to x@y.com",
				TaskType:    domain.TaskTypeBrowser,
				Confidence:  0.9,
				Executor:    domain.ExecutorBrowser,
				Outcome:     domain.OutcomeFallbackRequired,
				Error:       "chrome crashed",
				Actions: domain.TaskResult{
					{Action: domain.ActionBrowserStep, Description: "navigate", Success: true, Step: 1, Target: "https://mail.google.com"},
					{
						Action:              domain.ActionError,
						Description:         "Browser automation failed: chrome crashed",
						ErrorMessage:        "chrome crashed",
						FallbackRecommended: true,
						AgentType:           "browser",
						Timestamp:           startedAt.Add(40 * time.Second),
					},
					{
						Action:           domain.ActionFallbackToOCR,
						Description:      "Browser automation failed, desktop fallback required: chrome crashed",
						ErrorMessage:     "chrome crashed",
						FallbackRequired: true,
						AgentType:        "browser",
						Timestamp:        startedAt.Add(40 * time.Second),
					},
				},
			},
		},
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "runs.toml"), 0)
	run := sampleRun("run-1", started)

	require.NoError(t, repo.Save(context.Background(), run))

	got, err := repo.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.Equal(t, 42*time.Second, got.Duration())
}

func TestRepositorySaveReplacesExistingRun(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "runs.toml"), 0)
	run := sampleRun("run-1", started)
	require.NoError(t, repo.Save(context.Background(), run))

	run.Outcome = domain.OutcomeSucceeded
	run.Error = ""
	require.NoError(t, repo.Save(context.Background(), run))

	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.OutcomeSucceeded, runs[0].Outcome)
}

func TestRepositoryListNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "runs.toml"), 0)
	for i := range 5 {
		require.NoError(t, repo.Save(context.Background(), domain.RunRecord{
			ID:        domain.RunID("run-" + strconv.Itoa(i)),
			Objective: "open notepad",
			StartedAt: started.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.List(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []domain.RunID{"run-4", "run-3", "run-2"}, []domain.RunID{runs[0].ID, runs[1].ID, runs[2].ID})

	all, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRepositoryEvictsOldestBeyondLimit(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "runs.toml"), 2)
	for i := range 3 {
		require.NoError(t, repo.Save(context.Background(), domain.RunRecord{
			ID:        domain.RunID("run-" + strconv.Itoa(i)),
			StartedAt: started.Add(time.Duration(i) * time.Minute),
		}))
	}

	_, err := repo.GetByID(context.Background(), "run-0")
	require.ErrorIs(t, err, domain.ErrRunNotFound)

	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRepositorySaveCreatesDefaultPathAndEnforcesPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	repo, err := NewRepository(viper.New())
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), sampleRun("run-1", started)))

	historyPath := filepath.Join(homeDir, ".operate", "runs.toml")
	assert.Equal(t, historyPath, repo.Path())
	info, err := os.Stat(historyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRepositoryMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "runs.toml"), 0)

	runs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = repo.GetByID(context.Background(), "run-1")
	require.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRepositorySaveRejectsEmptyID(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "runs.toml"), 0)

	err := repo.Save(context.Background(), domain.RunRecord{Objective: "open notepad"})
	require.Error(t, err)
}

func TestRepositoryListMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	historyPath := filepath.Join(t.TempDir(), "runs.toml")
	require.NoError(t, os.WriteFile(historyPath, []byte("runs = ["), 0o600))

	repo := newTestRepository(t, historyPath, 0)

	_, err := repo.List(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode run history file")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "runs.toml"), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, sampleRun("run-1", started))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesPreserveAllRuns(t *testing.T) {
	t.Parallel()

	historyPath := filepath.Join(t.TempDir(), "runs.toml")
	const perRepoWrites = 50

	repoA := newTestRepository(t, historyPath, perRepoWrites*2)
	repoB := newTestRepository(t, historyPath, perRepoWrites*2)

	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	save := func(repo *Repository, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repo.Save(context.Background(), domain.RunRecord{
				ID:        domain.RunID(prefix + strconv.Itoa(i)),
				StartedAt: started.Add(time.Duration(i) * time.Second),
			})
		}
	}

	go save(repoA, "run-a-")
	go save(repoB, "run-b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	runs, err := repoA.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, perRepoWrites*2)
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	historyPath := filepath.Join(t.TempDir(), "runs.toml")
	repo := newTestRepository(t, historyPath, 0)

	require.NoError(t, repo.Save(context.Background(), sampleRun("run-1", started)))

	data, err := os.ReadFile(historyPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "[[runs]]")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	historyPath := filepath.Join(t.TempDir(), "runs.toml")
	require.NoError(t, os.WriteFile(historyPath, []byte(strings.Join([]string{
		"version = 999",
		"",
		"runs = []",
		"",
	}, "\n")), 0o600))

	repo := newTestRepository(t, historyPath, 0)

	_, err := repo.List(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported run history schema version")
}
