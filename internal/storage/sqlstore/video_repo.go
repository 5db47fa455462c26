package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/visiguard/internal/video/models"
)

type VideoRepo struct {
	db *sqlx.DB
}

func NewVideoRepo(db *sqlx.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

type videoRow struct {
	ID           string `db:"id"`
	Position     int64  `db:"position"`
	Title        string `db:"title"`
	Description  string `db:"description"`
	FileName     string `db:"file_name"`
	FileSize     int64  `db:"file_size"`
	MimeType     string `db:"mime_type"`
	UploadedBy   string `db:"uploaded_by"`
	OrgID        string `db:"org_id"`
	Status       string `db:"status"`
	Sensitivity  string `db:"sensitivity"`
	Progress     int    `db:"progress"`
	ThumbnailURL string `db:"thumbnail_url"`
	CreatedAt    string `db:"created_at"`
}

func toRow(pos int, v models.Video) videoRow {
	return videoRow{
		ID:           v.ID,
		Position:     int64(pos),
		Title:        v.Title,
		Description:  v.Description,
		FileName:     v.FileName,
		FileSize:     v.FileSize,
		MimeType:     v.MimeType,
		UploadedBy:   v.UploadedBy,
		OrgID:        v.OrgID,
		Status:       string(v.Status),
		Sensitivity:  string(v.Sensitivity),
		Progress:     v.Progress,
		ThumbnailURL: v.ThumbnailURL,
		CreatedAt:    v.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r videoRow) toModel() (models.Video, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return models.Video{}, fmt.Errorf("video %s: parse created_at: %w", r.ID, err)
	}
	return models.Video{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		FileName:     r.FileName,
		FileSize:     r.FileSize,
		MimeType:     r.MimeType,
		UploadedBy:   r.UploadedBy,
		OrgID:        r.OrgID,
		Status:       models.Status(r.Status),
		Sensitivity:  models.Sensitivity(r.Sensitivity),
		Progress:     r.Progress,
		ThumbnailURL: r.ThumbnailURL,
		CreatedAt:    createdAt,
	}, nil
}

func (r *VideoRepo) LoadAll(ctx context.Context) ([]models.Video, error) {
	const q = `
		SELECT id, position, title, description, file_name, file_size, mime_type,
		       uploaded_by, org_id, status, sensitivity, progress, thumbnail_url, created_at
		FROM videos
		ORDER BY position ASC
	`

	var rows []videoRow
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("videos load all: %w", err)
	}

	out := make([]models.Video, 0, len(rows))
	for _, row := range rows {
		v, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("videos load all: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SaveAll replaces the table contents in one transaction.
func (r *VideoRepo) SaveAll(ctx context.Context, videos []models.Video) error {
	const insert = `
		INSERT INTO videos (id, position, title, description, file_name, file_size, mime_type,
		                    uploaded_by, org_id, status, sensitivity, progress, thumbnail_url, created_at)
		VALUES (:id, :position, :title, :description, :file_name, :file_size, :mime_type,
		        :uploaded_by, :org_id, :status, :sensitivity, :progress, :thumbnail_url, :created_at)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos`); err != nil {
		return fmt.Errorf("videos save all: clear: %w", err)
	}
	for i, v := range videos {
		if _, err := tx.NamedExecContext(ctx, insert, toRow(i, v)); err != nil {
			return fmt.Errorf("videos save all: insert %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
