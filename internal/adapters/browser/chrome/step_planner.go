package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

type StepAction string

const (
	StepNavigate StepAction = "navigate"
	StepClick    StepAction = "click"
	StepType     StepAction = "type"
	StepKey      StepAction = "key"
	StepScroll   StepAction = "scroll"
	StepDone     StepAction = "done"
)

// Step is one browser action chosen by the step planner.
type Step struct {
	Action    StepAction `json:"action"`
	URL       string     `json:"url,omitempty"`
	X         float64    `json:"x,omitempty"`
	Y         float64    `json:"y,omitempty"`
	Text      string     `json:"text,omitempty"`
	Key       string     `json:"key,omitempty"`
	Direction string     `json:"direction,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Summary   string     `json:"summary,omitempty"`
}

func (s Step) target() string {
	switch s.Action {
	case StepNavigate:
		return s.URL
	case StepClick:
		return fmt.Sprintf("%.3f,%.3f", s.X, s.Y)
	case StepKey:
		return s.Key
	default:
		return ""
	}
}

type StepRequest struct {
	Objective  string
	Model      string
	URL        string
	Screenshot []byte
	History    []string
}

type StepPlanner interface {
	NextStep(ctx context.Context, req StepRequest) (Step, error)
}

// ChatClient is the subset of the ollama client used by the step planner.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

const stepSystemPrompt = `You control a web browser to reach the user's objective. You get a
screenshot of the page, its URL and the steps already taken. Reply with exactly
one JSON object describing the next step:

{"action": "navigate", "url": "https://...", "reason": "..."}
{"action": "click", "x": 0.42, "y": 0.18, "reason": "..."}   fractions of the page width and height
{"action": "type", "text": "...", "reason": "..."}
{"action": "key", "key": "enter|tab|escape|backspace|up|down|pagedown|pageup", "reason": "..."}
{"action": "scroll", "direction": "down|up", "reason": "..."}
{"action": "done", "summary": "what was achieved"}`

// OllamaStepPlanner asks an ollama vision model for the next browser step.
type OllamaStepPlanner struct {
	client ChatClient
	logger *zap.Logger
}

var _ StepPlanner = (*OllamaStepPlanner)(nil)

func NewOllamaStepPlanner(client ChatClient, logger *zap.Logger) *OllamaStepPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OllamaStepPlanner{client: client, logger: logger.With(zap.String("component", "browser_step_planner"))}
}

func (p *OllamaStepPlanner) NextStep(ctx context.Context, req StepRequest) (Step, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Objective: %s\nCurrent URL: %s\n", req.Objective, req.URL)
	if len(req.History) > 0 {
		prompt.WriteString("Steps taken:\n")
		for i, entry := range req.History {
			fmt.Fprintf(&prompt, "%d. %s\n", i+1, entry)
		}
	}
	prompt.WriteString("What is the next step?")

	user := api.Message{Role: "user", Content: prompt.String()}
	if len(req.Screenshot) > 0 {
		user.Images = []api.ImageData{req.Screenshot}
	}

	stream := false
	var content strings.Builder
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    req.Model,
		Messages: []api.Message{{Role: "system", Content: stepSystemPrompt}, user},
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return Step{}, fmt.Errorf("chat with %s: %w", req.Model, err)
	}

	step, err := ParseStep(content.String())
	if err != nil {
		p.logger.Debug("unparseable step", zap.String("content", content.String()))
		return Step{}, err
	}

	return step, nil
}

func ParseStep(content string) (Step, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return Step{}, errors.New("empty step response")
	}

	var step Step
	if err := json.Unmarshal([]byte(content), &step); err != nil {
		return Step{}, fmt.Errorf("decode step: %w", err)
	}
	step.Action = StepAction(strings.ToLower(strings.TrimSpace(string(step.Action))))

	switch step.Action {
	case StepNavigate, StepClick, StepType, StepKey, StepScroll, StepDone:
		return step, nil
	case "":
		return Step{}, errors.New("step has no action")
	default:
		return Step{}, fmt.Errorf("%w %q", errUnknownStep, step.Action)
	}
}
