package repository

import (
	"context"
	"sync"

	"github.com/romariotrain/visiguard/internal/video/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	videos []models.Video
	saves  int
}

func NewMemoryRepository(seed ...models.Video) *MemoryRepository {
	r := &MemoryRepository{}
	r.videos = append(r.videos, seed...)
	return r
}

func (r *MemoryRepository) LoadAll(ctx context.Context) ([]models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Video, len(r.videos))
	copy(out, r.videos)
	return out, nil
}

func (r *MemoryRepository) SaveAll(ctx context.Context, videos []models.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The caller keeps mutating its table, so store a copy.
	r.videos = make([]models.Video, len(videos))
	copy(r.videos, videos)
	r.saves++
	return nil
}

// Saves returns how many snapshots were written.
func (r *MemoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
