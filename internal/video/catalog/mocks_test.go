package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/visiguard/internal/blob"
	"github.com/romariotrain/visiguard/internal/video/models"
	"github.com/romariotrain/visiguard/internal/video/pipeline"
	"github.com/romariotrain/visiguard/internal/video/repository"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) LoadAll(ctx context.Context) ([]models.Video, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) SaveAll(ctx context.Context, videos []models.Video) error {
	args := m.Called(ctx, videos)
	return args.Error(0)
}

type RunnerMock struct {
	mock.Mock
}

func (m *RunnerMock) Submit(job pipeline.Job, sink pipeline.Sink) error {
	args := m.Called(job, sink)
	return args.Error(0)
}

func (m *RunnerMock) Cancel(id string) (<-chan struct{}, bool) {
	args := m.Called(id)
	return nil, args.Bool(0)
}

// flakyStore is the memory repository with writes that can be switched off.
type flakyStore struct {
	*repository.MemoryRepository
	fail atomic.Bool
}

func (s *flakyStore) SaveAll(ctx context.Context, videos []models.Video) error {
	if s.fail.Load() {
		return errors.New("disk full")
	}
	return s.MemoryRepository.SaveAll(ctx, videos)
}

// deferredRunner accepts jobs without starting them.
type deferredRunner struct {
	mu   sync.Mutex
	job  pipeline.Job
	sink pipeline.Sink
}

func (r *deferredRunner) Submit(job pipeline.Job, sink pipeline.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job, r.sink = job, sink
	return nil
}

func (r *deferredRunner) Cancel(string) (<-chan struct{}, bool) {
	return nil, false
}

func (r *deferredRunner) submitted() (pipeline.Job, pipeline.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job, r.sink
}

// brokenBlobs fails writes and deletes but otherwise behaves like memory.
type brokenBlobs struct {
	*blob.MemoryStore
	put, del bool
}

func (b brokenBlobs) Put(ctx context.Context, key string, data []byte, ct string) error {
	if b.put {
		return errors.New("quota exceeded")
	}
	return b.MemoryStore.Put(ctx, key, data, ct)
}

func (b brokenBlobs) Delete(ctx context.Context, key string) error {
	if b.del {
		return errors.New("permission denied")
	}
	return b.MemoryStore.Delete(ctx, key)
}

// holdPacer blocks every checkpoint until release is closed.
type holdPacer struct {
	release chan struct{}
}

func (p holdPacer) Wait(ctx context.Context, _ pipeline.Stage, _ int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.release:
		return nil
	}
}
