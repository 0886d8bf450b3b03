package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const (
	maxScreenTextRunes = 4000

	systemPromptTemplate = `You operate a computer on behalf of the user to reach this objective:

%s

You see a screenshot of the screen and the text recognized on it. Reply with a
JSON array of the next operations, nothing else. Available operations:

{"operation": "click", "thought": "...", "x": 0.50, "y": 0.25}
    click at a position given as fractions of the screen width and height
{"operation": "write", "thought": "...", "content": "text to type"}
{"operation": "press", "thought": "...", "keys": ["tab", "enter"]}
    press each key in turn
{"operation": "hotkey", "thought": "...", "keys": ["ctrl", "s"]}
    press the keys together
{"operation": "done", "thought": "...", "summary": "what was achieved"}

Return a few operations at a time and finish with "done" once the objective is
reached.`
)

// ChatClient is the subset of the ollama client used by the planner.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

type Config struct {
	SupportedModels []string
	OCRLanguages    []string
}

// Planner asks a local ollama vision model for the next desktop operations,
// given a fresh screenshot and its OCR text.
type Planner struct {
	client   ChatClient
	capturer ports.ScreenCapturer
	ocr      ports.OCRReaderProvider
	ids      ports.IDGenerator
	cfg      Config
	logger   *zap.Logger
}

var _ ports.Planner = (*Planner)(nil)

func NewPlanner(client ChatClient, capturer ports.ScreenCapturer, ocr ports.OCRReaderProvider, ids ports.IDGenerator, cfg Config, logger *zap.Logger) *Planner {
	if ids == nil {
		ids = ports.UUIDGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		client:   client,
		capturer: capturer,
		ocr:      ocr,
		ids:      ids,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "vision_planner")),
	}
}

// Supported reports whether model, ignoring any ":tag" suffix, is in the
// configured model set.
func (p *Planner) Supported(model string) bool {
	base, _, _ := strings.Cut(strings.TrimSpace(model), ":")
	for _, candidate := range p.cfg.SupportedModels {
		candidateBase, _, _ := strings.Cut(candidate, ":")
		if strings.EqualFold(base, candidateBase) {
			return true
		}
	}

	return false
}

func (p *Planner) GetNextAction(ctx context.Context, req ports.PlanRequest) (ports.Plan, error) {
	if !p.Supported(req.Model) {
		return ports.Plan{}, fmt.Errorf("%w: %q", domain.ErrModelNotRecognized, req.Model)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = p.ids.NewID()
	}

	screenshot, err := p.capturer.Capture(ctx)
	if err != nil {
		return ports.Plan{}, fmt.Errorf("capture screen: %w", err)
	}

	prompt := userPrompt(p.screenText(ctx, screenshot))

	messages := make([]api.Message, 0, len(req.History)+2)
	messages = append(messages, api.Message{Role: string(domain.RoleSystem), Content: fmt.Sprintf(systemPromptTemplate, req.Objective)})
	for _, message := range req.History {
		if message.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, api.Message{Role: string(message.Role), Content: message.Content})
	}
	messages = append(messages, api.Message{
		Role:    string(domain.RoleUser),
		Content: prompt,
		Images:  []api.ImageData{screenshot},
	})

	stream := false
	var content strings.Builder
	err = p.client.Chat(ctx, &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return ports.Plan{}, fmt.Errorf("%w: %s", domain.ErrModelNotRecognized, statusErr.ErrorMessage)
		}
		return ports.Plan{}, fmt.Errorf("chat with %s: %w", req.Model, err)
	}

	ops, err := ParseResponse(content.String())
	if err != nil {
		p.logger.Debug("unparseable planner response", zap.String("content", content.String()))
		return ports.Plan{}, err
	}

	return ports.Plan{Operations: ops, SessionID: sessionID, Prompt: prompt}, nil
}

// screenText returns the OCR text of the screenshot, or "" when OCR is not
// configured or fails; the vision model can still work from the image.
func (p *Planner) screenText(ctx context.Context, screenshot []byte) string {
	if p.ocr == nil {
		return ""
	}

	reader, err := p.ocr.Reader(ctx, p.cfg.OCRLanguages)
	if err != nil {
		p.logger.Warn("ocr reader unavailable", zap.Error(err))
		return ""
	}

	text, err := reader.ReadText(ctx, screenshot)
	if err != nil {
		p.logger.Warn("ocr failed", zap.Error(err))
		return ""
	}

	runes := []rune(text)
	if len(runes) > maxScreenTextRunes {
		text = string(runes[:maxScreenTextRunes])
	}

	return text
}

func userPrompt(screenText string) string {
	if screenText == "" {
		return "Here is the current screen. What are the next operations?"
	}

	return "Here is the current screen. Text recognized on it:\n" + screenText + "\n\nWhat are the next operations?"
}

// ParseResponse accepts a bare JSON array of operations, an object with an
// "operations" array, or either of those inside a fenced code block.
func ParseResponse(content string) ([]domain.Operation, error) {
	payload := stripFence(strings.TrimSpace(content))
	if payload == "" {
		return nil, errors.New("empty planner response")
	}

	if strings.HasPrefix(payload, "{") {
		var wrapped struct {
			Operations json.RawMessage `json:"operations"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapped); err != nil {
			return nil, fmt.Errorf("decode planner response: %w", err)
		}
		if len(wrapped.Operations) > 0 {
			return domain.ParseOperations(wrapped.Operations)
		}

		op, err := domain.ParseOperation(json.RawMessage(payload))
		if err != nil {
			return nil, err
		}
		return []domain.Operation{op}, nil
	}

	return domain.ParseOperations([]byte(payload))
}

func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	lines = lines[1:]
	if idx := slices.IndexFunc(lines, func(line string) bool { return strings.TrimSpace(line) == "```" }); idx >= 0 {
		lines = lines[:idx]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
