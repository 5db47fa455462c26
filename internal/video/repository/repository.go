package repository

import (
	"context"

	"github.com/romariotrain/visiguard/internal/video/models"
)

// MetadataStore persists the whole video table at once. SaveAll replaces
// everything previously stored; order of the slice is preserved by LoadAll.
type MetadataStore interface {
	LoadAll(ctx context.Context) ([]models.Video, error)
	SaveAll(ctx context.Context, videos []models.Video) error
}
