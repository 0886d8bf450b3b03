package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int         `toml:"version"`
	Runs    []runSchema `toml:"runs"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported run history schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type runSchema struct {
	ID         string       `toml:"id"`
	Objective  string       `toml:"objective"`
	Model      string       `toml:"model"`
	TaskType   string       `toml:"task_type"`
	Confidence float64      `toml:"confidence"`
	Outcome    string       `toml:"outcome"`
	StartedAt  string       `toml:"started_at"`
	FinishedAt string       `toml:"finished_at"`
	Error      string       `toml:"error,omitempty"`
	Tasks      []taskSchema `toml:"tasks,omitempty"`
}

type taskSchema struct {
	Order       int            `toml:"order"`
	Description string         `toml:"description"`
	TaskType    string         `toml:"task_type"`
	Confidence  float64        `toml:"confidence"`
	Executor    string         `toml:"executor"`
	Outcome     string         `toml:"outcome"`
	Summary     string         `toml:"summary,omitempty"`
	Error       string         `toml:"error,omitempty"`
	Iterations  int            `toml:"iterations,omitempty"`
	Actions     []actionSchema `toml:"actions,omitempty"`
}

type actionSchema struct {
	Action              string `toml:"action"`
	Description         string `toml:"description"`
	Success             bool   `toml:"success"`
	Step                int    `toml:"step,omitempty"`
	Target              string `toml:"target,omitempty"`
	ErrorMessage        string `toml:"error_message,omitempty"`
	FallbackRecommended bool   `toml:"fallback_recommended,omitempty"`
	FallbackRequired    bool   `toml:"fallback_required,omitempty"`
	AgentType           string `toml:"agent_type,omitempty"`
	Timestamp           string `toml:"timestamp,omitempty"`
}
