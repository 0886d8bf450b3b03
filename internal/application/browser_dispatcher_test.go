package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
	"github.com/bnema/operate-cli/internal/ports/mocks"
)

var testNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func TestBrowserDispatcherSuccess(t *testing.T) {
	factory := mocks.NewMockBrowserAgentFactory(t)
	agent := mocks.NewMockBrowserAgent(t)
	dispatcher := NewBrowserDispatcher(factory, fixedClock{now: testNow}, zaptest.NewLogger(t))

	want := domain.TaskResult{
		{Action: domain.ActionBrowserStep, Description: "navigate https://youtube.com", Success: true, Step: 1},
		{Action: domain.ActionTaskCompleted, Description: "opened youtube", Success: true},
	}
	factory.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), ports.BrowserRun{
		Objective:  "open youtube",
		Model:      "llava",
		SessionID:  "s-1",
		ProfileDir: "/tmp/profile",
	}).Return(want, nil).Once()
	agent.On("Close").Return(nil).Once()

	got := dispatcher.Run(context.Background(), BrowserDispatch{
		Objective:  "open youtube",
		Model:      "llava",
		SessionID:  "s-1",
		ProfileDir: "/tmp/profile",
	})

	assert.Equal(t, want, got)
	assert.True(t, got.Succeeded())
}

func TestBrowserDispatcherAgentErrorBecomesFallbackRecord(t *testing.T) {
	factory := mocks.NewMockBrowserAgentFactory(t)
	agent := mocks.NewMockBrowserAgent(t)
	dispatcher := NewBrowserDispatcher(factory, fixedClock{now: testNow}, zaptest.NewLogger(t))

	factory.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), ports.BrowserRun{Objective: "open gmail", Model: "llava"}).
		Return(domain.TaskResult{{Action: domain.ActionBrowserStep, Description: "navigate", Success: true, Step: 1}}, errors.New("chrome crashed")).Once()
	agent.On("Close").Return(errors.New("already closed")).Once()

	got := dispatcher.Run(context.Background(), BrowserDispatch{Objective: "open gmail", Model: "llava"})

	require.Len(t, got, 3)
	assert.Equal(t, domain.ActionRecord{
		Action:              domain.ActionError,
		Description:         "Browser automation failed: chrome crashed",
		ErrorMessage:        "chrome crashed",
		FallbackRecommended: true,
		AgentType:           "browser",
		Timestamp:           testNow,
	}, got[1])
	final, ok := got.Final()
	require.True(t, ok)
	assert.Equal(t, domain.ActionFallbackToOCR, final.Action)
	assert.True(t, final.FallbackRequired)
	assert.False(t, final.Success)
	assert.Equal(t, "chrome crashed", final.ErrorMessage)
	assert.True(t, got.FallbackRequired())
	assert.False(t, got.Succeeded())
}

func TestBrowserDispatcherFactoryError(t *testing.T) {
	factory := mocks.NewMockBrowserAgentFactory(t)
	dispatcher := NewBrowserDispatcher(factory, fixedClock{now: testNow}, nil)

	factory.On("NewAgent", mockAnyContext(), "llava").Return(nil, errors.New("chrome not found")).Once()

	got := dispatcher.Run(context.Background(), BrowserDispatch{Objective: "open gmail", Model: "llava"})

	require.Len(t, got, 2)
	assert.Contains(t, got[0].ErrorMessage, "chrome not found")
	assert.True(t, got.FallbackRequired())
}

func TestBrowserDispatcherEmptyResult(t *testing.T) {
	factory := mocks.NewMockBrowserAgentFactory(t)
	agent := mocks.NewMockBrowserAgent(t)
	dispatcher := NewBrowserDispatcher(factory, fixedClock{now: testNow}, nil)

	factory.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), ports.BrowserRun{Objective: "open gmail", Model: "llava"}).Return(domain.TaskResult{}, nil).Once()
	agent.On("Close").Return(nil).Once()

	got := dispatcher.Run(context.Background(), BrowserDispatch{Objective: "open gmail", Model: "llava"})

	require.Len(t, got, 2)
	assert.ErrorContains(t, errors.New(got[0].ErrorMessage), "agent returned no actions")
	assert.True(t, got.FallbackRequired())
}

func TestBrowserDispatcherUnsuccessfulWithoutFallbackIsKept(t *testing.T) {
	factory := mocks.NewMockBrowserAgentFactory(t)
	agent := mocks.NewMockBrowserAgent(t)
	dispatcher := NewBrowserDispatcher(factory, fixedClock{now: testNow}, nil)

	want := domain.TaskResult{{Action: domain.ActionTaskCompleted, Description: "step budget exhausted", Success: false}}
	factory.On("NewAgent", mockAnyContext(), "llava").Return(agent, nil).Once()
	agent.On("Run", mockAnyContext(), ports.BrowserRun{Objective: "open gmail", Model: "llava"}).Return(want, nil).Once()
	agent.On("Close").Return(nil).Once()

	got := dispatcher.Run(context.Background(), BrowserDispatch{Objective: "open gmail", Model: "llava"})

	assert.Equal(t, want, got)
	assert.False(t, got.Succeeded())
	assert.False(t, got.FallbackRequired())
}
