package relay

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/visiguard/internal/video/models"
)

type ProducerMock struct {
	mock.Mock
}

func (m *ProducerMock) PublishBatch(ctx context.Context, messages []Message) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

// fakeSource hands updates straight to its subscribers.
type fakeSource struct {
	mu  sync.Mutex
	fns map[int]func(models.Update)
	n   int
}

func (s *fakeSource) Subscribe(fn func(models.Update)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(models.Update))
	}
	id := s.n
	s.n++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *fakeSource) emit(u models.Update) {
	s.mu.Lock()
	fns := make([]func(models.Update), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (s *fakeSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
