package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bnema/operate-cli/internal/domain"
)

func newOllamaServer(t *testing.T, status int, content string, seen *api.ChatRequest) *api.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= http.StatusBadRequest {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": content})
			return
		}
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   "llama3.2",
			Message: api.Message{Role: "assistant", Content: content},
			Done:    true,
		})
	}))
	t.Cleanup(server.Close)

	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	return api.NewClient(base, server.Client())
}

func TestClassifierSequentialResponse(t *testing.T) {
	t.Parallel()

	var seen api.ChatRequest
	client := newOllamaServer(t, http.StatusOK, `{
		"task_type": "sequential",
		"confidence": 0.95,
		"reasoning": "desktop app then web mail",
		"detected_patterns": ["desktop_app", "email_service"],
		"subtasks": [
			{"description": "Open Gmail and send WordDocument.docx", "task_type": "browser", "confidence": 0.85, "order": 7, "dependencies": ["WordDocument.docx"]},
			{"description": "Open Microsoft Word and save WordDocument.docx", "task_type": "desktop", "confidence": 0.9, "order": 3}
		]
	}`, &seen)
	classifier := NewClassifier(client, "llama3.2", zaptest.NewLogger(t))

	got, err := classifier.ClassifyTask(context.Background(), "open word, type, save, then gmail it")
	require.NoError(t, err)

	assert.Equal(t, "llama3.2", seen.Model)
	require.NotNil(t, seen.Stream)
	assert.False(t, *seen.Stream)
	assert.JSONEq(t, `"json"`, string(seen.Format))
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Contains(t, seen.Messages[1].Content, "open word, type, save, then gmail it")

	assert.Equal(t, domain.TaskTypeSequential, got.TaskType)
	assert.Equal(t, 0.95, got.Confidence)
	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, 1, got.Subtasks[0].Order)
	assert.Equal(t, domain.TaskTypeDesktop, got.Subtasks[0].TaskType)
	assert.Equal(t, []string{}, got.Subtasks[0].Dependencies)
	assert.Equal(t, 2, got.Subtasks[1].Order)
	assert.Equal(t, []string{"WordDocument.docx"}, got.Subtasks[1].Dependencies)
}

func TestClassifierAmbiguousKeepsFallback(t *testing.T) {
	t.Parallel()

	client := newOllamaServer(t, http.StatusOK, `{"task_type": "ambiguous", "confidence": 0.3, "reasoning": "unclear", "fallback_recommendation": "desktop"}`, nil)
	classifier := NewClassifier(client, "llama3.2", nil)

	got, err := classifier.ClassifyTask(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeAmbiguous, got.TaskType)
	assert.Equal(t, domain.TaskTypeDesktop, got.FallbackOr(domain.TaskTypeBrowser))
	assert.Equal(t, []string{}, got.DetectedPatterns)
}

func TestClassifierDropsSubtasksForNonSequential(t *testing.T) {
	t.Parallel()

	client := newOllamaServer(t, http.StatusOK, `{"task_type": "browser", "confidence": 0.9, "reasoning": "web", "subtasks": [{"description": "x", "task_type": "browser", "confidence": 0.5, "order": 1}]}`, nil)
	classifier := NewClassifier(client, "llama3.2", nil)

	got, err := classifier.ClassifyTask(context.Background(), "open youtube")
	require.NoError(t, err)
	assert.Empty(t, got.Subtasks)
}

func TestClassifierErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		content string
	}{
		{name: "transport error", status: http.StatusInternalServerError, content: "boom"},
		{name: "not json", status: http.StatusOK, content: "browser, definitely"},
		{name: "empty", status: http.StatusOK, content: "  "},
		{name: "unknown task type", status: http.StatusOK, content: `{"task_type": "spreadsheet", "confidence": 0.9}`},
		{name: "confidence out of range", status: http.StatusOK, content: `{"task_type": "desktop", "confidence": 1.7}`},
		{name: "sequential without subtasks", status: http.StatusOK, content: `{"task_type": "sequential", "confidence": 0.9}`},
		{name: "subtask without description", status: http.StatusOK, content: `{"task_type": "sequential", "confidence": 0.9, "subtasks": [{"description": " ", "task_type": "desktop", "confidence": 0.5, "order": 1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			classifier := NewClassifier(newOllamaServer(t, tt.status, tt.content, nil), "llama3.2", nil)

			_, err := classifier.ClassifyTask(context.Background(), "open notepad")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
		})
	}
}

func TestClassifierRejectsEmptyObjective(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier(nil, "llama3.2", nil)

	_, err := classifier.ClassifyTask(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrEmptyObjective)
}
