package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/operate-cli/internal/domain"
)

func mockAnyContext() any {
	return mock.MatchedBy(func(context.Context) bool { return true })
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type recordingReporter struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingReporter) Report(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingReporter) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}

	return out
}

type sequenceIDs struct {
	mu   sync.Mutex
	ids  []string
	next int
}

func (s *sequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids[s.next%len(s.ids)]
	s.next++
	return id
}
