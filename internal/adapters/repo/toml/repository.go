package toml

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const (
	historyPathKey    = "history.path"
	historyLimitKey   = "history.limit"
	historyFileMode   = 0o600
	historyDirMode    = 0o700
	historyConfigDir  = ".operate"
	historyConfigFile = "runs.toml"
	defaultLimit      = 200
	tempFilePattern   = ".runs-*.toml.tmp"
)

// Repository keeps the run history in a single TOML file. At most limit runs
// are retained; saving beyond that evicts the oldest by start time.
type Repository struct {
	historyPath string
	limit       int
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RunRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetDefault(historyPathKey, filepath.Join(homeDir, historyConfigDir, historyConfigFile))
	cfg.SetDefault(historyLimitKey, defaultLimit)

	historyPath := cfg.GetString(historyPathKey)
	if historyPath == "" {
		return nil, errors.New("history path is empty")
	}
	historyPath, err = normalizeHistoryPath(historyPath)
	if err != nil {
		return nil, err
	}

	limit := cfg.GetInt(historyLimitKey)
	if limit <= 0 {
		limit = defaultLimit
	}

	return &Repository{historyPath: historyPath, limit: limit, mu: lockForPath(historyPath)}, nil
}

func (r *Repository) Path() string {
	return r.historyPath
}

func (r *Repository) Save(ctx context.Context, record domain.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		return errors.New("run id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(record)
	updated := false
	for i := range file.Runs {
		if file.Runs[i].ID == encoded.ID {
			file.Runs[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Runs = append(file.Runs, encoded)
	}

	sortNewestFirst(file.Runs)
	if len(file.Runs) > r.limit {
		file.Runs = file.Runs[:r.limit]
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) GetByID(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RunRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.RunRecord{}, err
	}

	for _, entry := range file.Runs {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
}

// List returns runs newest first. A non-positive limit returns every run.
func (r *Repository) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sortNewestFirst(file.Runs)
	if limit > 0 && len(file.Runs) > limit {
		file.Runs = file.Runs[:limit]
	}

	runs := make([]domain.RunRecord, 0, len(file.Runs))
	for _, entry := range file.Runs {
		runs = append(runs, fromSchema(entry))
	}

	return runs, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.historyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read run history file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode run history file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.historyPath), historyDirMode); err != nil {
		return fmt.Errorf("create run history directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode run history file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.historyPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp run history file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp run history file: %w", err)
	}

	if err := tempFile.Chmod(historyFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp run history file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp run history file: %w", err)
	}

	if err := os.Rename(tempName, r.historyPath); err != nil {
		return fmt.Errorf("replace run history file: %w", err)
	}

	cleanup = false

	return nil
}

func normalizeHistoryPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve history path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func sortNewestFirst(runs []runSchema) {
	slices.SortStableFunc(runs, func(a, b runSchema) int {
		return cmp.Compare(parseTime(b.StartedAt).UnixNano(), parseTime(a.StartedAt).UnixNano())
	})
}

func toSchema(record domain.RunRecord) runSchema {
	tasks := make([]taskSchema, 0, len(record.Tasks))
	for _, task := range record.Tasks {
		actions := make([]actionSchema, 0, len(task.Actions))
		for _, action := range task.Actions {
			actions = append(actions, actionSchema{
				Action:              action.Action,
				Description:         action.Description,
				Success:             action.Success,
				Step:                action.Step,
				Target:              action.Target,
				ErrorMessage:        action.ErrorMessage,
				FallbackRecommended: action.FallbackRecommended,
				FallbackRequired:    action.FallbackRequired,
				AgentType:           action.AgentType,
				Timestamp:           formatTime(action.Timestamp),
			})
		}

		tasks = append(tasks, taskSchema{
			Order:       task.Order,
			Description: task.Description,
			TaskType:    string(task.TaskType),
			Confidence:  task.Confidence,
			Executor:    string(task.Executor),
			Outcome:     string(task.Outcome),
			Summary:     task.Summary,
			Error:       task.Error,
			Iterations:  task.Iterations,
			Actions:     actions,
		})
	}

	return runSchema{
		ID:         string(record.ID),
		Objective:  record.Objective,
		Model:      record.Model,
		TaskType:   string(record.TaskType),
		Confidence: record.Confidence,
		Outcome:    string(record.Outcome),
		StartedAt:  formatTime(record.StartedAt),
		FinishedAt: formatTime(record.FinishedAt),
		Error:      record.Error,
		Tasks:      tasks,
	}
}

func fromSchema(run runSchema) domain.RunRecord {
	var tasks []domain.TaskOutcome
	for _, task := range run.Tasks {
		var actions domain.TaskResult
		for _, action := range task.Actions {
			actions = append(actions, domain.ActionRecord{
				Action:              action.Action,
				Description:         action.Description,
				Success:             action.Success,
				Step:                action.Step,
				Target:              action.Target,
				ErrorMessage:        action.ErrorMessage,
				FallbackRecommended: action.FallbackRecommended,
				FallbackRequired:    action.FallbackRequired,
				AgentType:           action.AgentType,
				Timestamp:           parseTime(action.Timestamp),
			})
		}

		tasks = append(tasks, domain.TaskOutcome{
			Order:       task.Order,
			Description: task.Description,
			TaskType:    domain.TaskType(task.TaskType),
			Confidence:  task.Confidence,
			Executor:    domain.Executor(task.Executor),
			Outcome:     domain.Outcome(task.Outcome),
			Summary:     task.Summary,
			Error:       task.Error,
			Iterations:  task.Iterations,
			Actions:     actions,
		})
	}

	return domain.RunRecord{
		ID:         domain.RunID(run.ID),
		Objective:  run.Objective,
		Model:      run.Model,
		TaskType:   domain.TaskType(run.TaskType),
		Confidence: run.Confidence,
		Outcome:    domain.Outcome(run.Outcome),
		Tasks:      tasks,
		StartedAt:  parseTime(run.StartedAt),
		FinishedAt: parseTime(run.FinishedAt),
		Error:      run.Error,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
