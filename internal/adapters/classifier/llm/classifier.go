package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const systemPrompt = `You classify tasks for a computer automation system and pick the automation approach.

TASK TYPES:
- desktop: needs desktop applications (Word, Excel, Notepad, Calculator, file manager)
- browser: needs a web browser (websites, Gmail, YouTube, online services)
- sequential: several steps that switch between desktop and browser work
- mixed: desktop and browser work at the same time
- ambiguous: unclear, needs clarification

RULES:
- a desktop application plus a web service (Word then Gmail) is sequential
- comma separated steps using different kinds of applications are sequential
- "save file" followed by "email/send" is sequential
- only websites, URLs or web services is browser
- only named desktop applications is desktop

For sequential tasks list specific, actionable subtasks in execution order and
name files produced by earlier steps in "dependencies". For every other type
"subtasks" is empty.

Reply with JSON only:
{"task_type": "...", "confidence": 0.0, "reasoning": "...", "detected_patterns": ["..."],
 "fallback_recommendation": "browser|desktop (ambiguous or mixed only)",
 "subtasks": [{"description": "...", "task_type": "desktop|browser", "confidence": 0.0, "order": 1, "dependencies": [], "reasoning": "..."}]}`

var errEmptyResponse = errors.New("empty classifier response")

// ChatClient is the subset of the ollama client used by the classifier.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// Classifier asks a local ollama chat model to classify an objective.
type Classifier struct {
	client ChatClient
	model  string
	logger *zap.Logger
}

var _ ports.TaskClassifier = (*Classifier)(nil)

func NewClassifier(client ChatClient, model string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Classifier{
		client: client,
		model:  model,
		logger: logger.With(zap.String("component", "llm_classifier")),
	}
}

type responseSchema struct {
	TaskType               string          `json:"task_type"`
	Confidence             float64         `json:"confidence"`
	Reasoning              string          `json:"reasoning"`
	DetectedPatterns       []string        `json:"detected_patterns"`
	FallbackRecommendation string          `json:"fallback_recommendation"`
	Subtasks               []subtaskSchema `json:"subtasks"`
}

type subtaskSchema struct {
	Description  string   `json:"description"`
	TaskType     string   `json:"task_type"`
	Confidence   float64  `json:"confidence"`
	Order        int      `json:"order"`
	Dependencies []string `json:"dependencies"`
	Reasoning    string   `json:"reasoning"`
}

func (c *Classifier) ClassifyTask(ctx context.Context, objective string) (domain.ClassificationResult, error) {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		return domain.ClassificationResult{}, domain.ErrEmptyObjective
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Classify this task:\n\nTASK: %q", objective)},
		},
		Format:  json.RawMessage(`"json"`),
		Stream:  &stream,
		Options: map[string]any{"temperature": 0.1},
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: chat: %w", domain.ErrClassifierUnavailable, err)
	}

	result, err := decodeResult(content.String())
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}

	c.logger.Debug("classified objective",
		zap.String("task_type", result.TaskType.String()),
		zap.Float64("confidence", result.Confidence),
		zap.Int("subtasks", len(result.Subtasks)),
	)

	return result, nil
}

func decodeResult(raw string) (domain.ClassificationResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ClassificationResult{}, errEmptyResponse
	}

	var decoded responseSchema
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("decode classifier response: %w", err)
	}

	taskType, err := domain.ParseTaskType(decoded.TaskType)
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	result := domain.ClassificationResult{
		TaskType:         taskType,
		Confidence:       decoded.Confidence,
		Reasoning:        decoded.Reasoning,
		DetectedPatterns: decoded.DetectedPatterns,
	}
	if result.DetectedPatterns == nil {
		result.DetectedPatterns = []string{}
	}

	if decoded.FallbackRecommendation != "" && (taskType == domain.TaskTypeAmbiguous || taskType == domain.TaskTypeMixed) {
		fallback, err := domain.ParseTaskType(decoded.FallbackRecommendation)
		if err != nil {
			return domain.ClassificationResult{}, fmt.Errorf("fallback recommendation: %w", err)
		}
		result.FallbackRecommendation = domain.Fallback(fallback)
	}

	if taskType == domain.TaskTypeSequential {
		subtasks, err := decodeSubtasks(decoded.Subtasks)
		if err != nil {
			return domain.ClassificationResult{}, err
		}
		result.Subtasks = subtasks
	}

	if err := result.Validate(); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("validate classifier response: %w", err)
	}

	return result, nil
}

// decodeSubtasks orders subtasks by the model's order field and renumbers them
// 1..N, since models often skip or repeat numbers.
func decodeSubtasks(raw []subtaskSchema) ([]domain.SubTask, error) {
	ordered := slices.Clone(raw)
	slices.SortStableFunc(ordered, func(a, b subtaskSchema) int {
		return a.Order - b.Order
	})

	subtasks := make([]domain.SubTask, 0, len(ordered))
	for i, entry := range ordered {
		description := strings.TrimSpace(entry.Description)
		if description == "" {
			return nil, fmt.Errorf("subtask %d has no description", i+1)
		}

		taskType, err := domain.ParseTaskType(entry.TaskType)
		if err != nil {
			return nil, fmt.Errorf("subtask %d: %w", i+1, err)
		}
		if entry.Confidence < 0 || entry.Confidence > 1 {
			return nil, fmt.Errorf("subtask %d confidence %.2f out of range [0,1]", i+1, entry.Confidence)
		}

		dependencies := entry.Dependencies
		if dependencies == nil {
			dependencies = []string{}
		}

		subtasks = append(subtasks, domain.SubTask{
			Description:  description,
			TaskType:     taskType,
			Confidence:   entry.Confidence,
			Order:        i + 1,
			Dependencies: dependencies,
			Reasoning:    entry.Reasoning,
		})
	}

	return subtasks, nil
}
