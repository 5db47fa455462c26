package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/visiguard/internal/video/models"
)

type BlobMock struct {
	mock.Mock
}

func (m *BlobMock) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *BlobMock) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BlobMock) Stat(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *BlobMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type fixedClassifier struct {
	verdict models.Sensitivity
	calls   int
	mu      sync.Mutex
}

func (c *fixedClassifier) Classify(context.Context, string, string) models.Sensitivity {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.verdict
}

// recordingSink keeps every checkpoint it accepted.
type recordingSink struct {
	mu     sync.Mutex
	got    []models.Checkpoint
	err    error
	failOn int
}

func (s *recordingSink) Apply(_ context.Context, cp models.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil && (s.failOn == 0 || cp.Progress == s.failOn) {
		return s.err
	}
	s.got = append(s.got, cp)
	return nil
}

func (s *recordingSink) checkpoints() []models.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Checkpoint, len(s.got))
	copy(out, s.got)
	return out
}

// gatePacer blocks every wait until release is closed or ctx ends.
type gatePacer struct {
	entered chan int
	release chan struct{}
}

func newGatePacer() *gatePacer {
	return &gatePacer{entered: make(chan int, 16), release: make(chan struct{})}
}

func (p *gatePacer) Wait(ctx context.Context, _ Stage, progress int) error {
	select {
	case p.entered <- progress:
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.release:
		return nil
	}
}
