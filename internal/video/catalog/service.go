// Package catalog owns the in-process table of video records. All reads go
// through role-based visibility and all writes go through the metadata store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/visiguard/internal/blob"
	"github.com/romariotrain/visiguard/internal/video/domain"
	"github.com/romariotrain/visiguard/internal/video/models"
	"github.com/romariotrain/visiguard/internal/video/pipeline"
	"github.com/romariotrain/visiguard/internal/video/repository"
)

const DefaultThumbnailURL = "https://picsum.photos/seed/{id}/400/225"

// Runner starts and cancels pipeline jobs.
type Runner interface {
	Submit(job pipeline.Job, sink pipeline.Sink) error
	Cancel(id string) (<-chan struct{}, bool)
}

type Config struct {
	Store        repository.MetadataStore
	Blobs        blob.Store
	Linker       blob.Linker
	Runner       Runner
	Recovery     domain.RecoveryPolicy
	ThumbnailURL string
	Logger       zerolog.Logger
}

type Service struct {
	store     repository.MetadataStore
	blobs     blob.Store
	linker    blob.Linker
	runner    Runner
	recovery  domain.RecoveryPolicy
	thumbnail string
	logger    zerolog.Logger
	clock     func() time.Time
	idGen     func() uuid.UUID

	mu     sync.Mutex
	videos []models.Video

	observers observers
	cleanups  sync.WaitGroup
}

var _ pipeline.Sink = (*Service)(nil)

func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Linker == nil {
		return nil, fmt.Errorf("playback linker is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("pipeline runner is required")
	}
	recovery := cfg.Recovery
	if recovery == "" {
		recovery = domain.RecoverComplete
	}
	thumbnail := cfg.ThumbnailURL
	if thumbnail == "" {
		thumbnail = DefaultThumbnailURL
	}

	logger := cfg.Logger.With().Str("component", "catalog").Logger()
	return &Service{
		store:     cfg.Store,
		blobs:     cfg.Blobs,
		linker:    cfg.Linker,
		runner:    cfg.Runner,
		recovery:  recovery,
		thumbnail: thumbnail,
		logger:    logger,
		clock:     time.Now,
		idGen:     uuid.New,
		observers: observers{logger: logger},
	}, nil
}

// Load reads the table from the metadata store and repairs records whose
// pipeline job did not survive a restart. An unreadable store is logged
// and treated as empty. The error reports only a failed write-back.
func (s *Service) Load(ctx context.Context) error {
	loaded, err := s.store.LoadAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load video metadata, starting empty")
		loaded = nil
	}

	videos := make([]models.Video, 0, len(loaded))
	repaired := 0
	for _, v := range loaded {
		if v.ID == "" {
			s.logger.Warn().Str("title", v.Title).Msg("dropping video without id")
			continue
		}
		if fixed, changed := s.recovery.Recover(v); changed {
			s.logger.Warn().
				Str("video_id", v.ID).
				Str("from_status", string(v.Status)).
				Str("to_status", string(fixed.Status)).
				Str("policy", string(s.recovery)).
				Msg("repaired interrupted video")
			v = fixed
			repaired++
		}
		videos = append(videos, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = videos

	s.logger.Info().Int("videos", len(videos)).Int("repaired", repaired).Msg("catalog loaded")
	if repaired == 0 {
		return nil
	}
	if err := s.store.SaveAll(ctx, s.videos); err != nil {
		return fmt.Errorf("save repaired metadata: %w", err)
	}
	return nil
}

// List returns the videos user may see, newest first.
func (s *Service) List(user models.User) []models.Video {
	return s.Search(user, "")
}

// Search is List narrowed to videos whose title, description, status or
// sensitivity contains query.
func (s *Service) Search(user models.User, query string) []models.Video {
	s.mu.Lock()
	out := make([]models.Video, 0, len(s.videos))
	positions := make([]int, 0, len(s.videos))
	for i, v := range s.videos {
		if Visible(user, v) && matches(v, query) {
			out = append(out, v)
			positions = append(positions, i)
		}
	}
	s.mu.Unlock()

	newestFirst(out, positions)
	return out
}

// Get returns one video if user may see it.
func (s *Service) Get(user models.User, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 || !Visible(user, s.videos[i]) {
		return models.Video{}, models.ErrNotFound
	}
	return s.videos[i], nil
}

// Create persists a new video in uploading state, starts its pipeline job
// and returns the id without waiting for the job.
func (s *Service) Create(ctx context.Context, up models.Upload, user models.User) (string, error) {
	if strings.TrimSpace(up.Title) == "" || up.Data == nil || up.FileName == "" {
		return "", models.ErrInvalidArgument
	}
	if user.ID == "" || user.OrgID == "" {
		return "", models.ErrInvalidArgument
	}

	s.mu.Lock()
	id := s.newID()
	v := models.Video{
		ID:           id,
		Title:        strings.TrimSpace(up.Title),
		Description:  up.Description,
		FileName:     up.FileName,
		FileSize:     int64(len(up.Data)),
		MimeType:     up.MimeType,
		UploadedBy:   user.ID,
		OrgID:        user.OrgID,
		Status:       models.UploadingStatus,
		Sensitivity:  models.PendingSensitivity,
		Progress:     0,
		ThumbnailURL: strings.ReplaceAll(s.thumbnail, "{id}", id),
		CreatedAt:    s.clock().UTC(),
	}

	next := make([]models.Video, len(s.videos), len(s.videos)+1)
	copy(next, s.videos)
	next = append(next, v)

	// The record must be durable before any processing starts.
	if err := s.store.SaveAll(ctx, next); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("persist new video: %w", err)
	}
	s.videos = next
	s.mu.Unlock()

	s.logger.Info().
		Str("video_id", id).
		Str("uploaded_by", user.ID).
		Str("org_id", user.OrgID).
		Int64("bytes", v.FileSize).
		Str("size", humanize.IBytes(uint64(v.FileSize))).
		Msg("video created")
	s.observers.notify(s.update(models.CreatedUpdate, v, nil))

	job := pipeline.Job{
		VideoID:     id,
		Title:       v.Title,
		Description: v.Description,
		MimeType:    v.MimeType,
		Data:        up.Data,
	}
	if err := s.runner.Submit(job, s); err != nil {
		failErr := s.Apply(context.Background(), models.Checkpoint{VideoID: id, Status: models.FailedStatus})
		return "", errors.Join(fmt.Errorf("start pipeline for %s: %w", id, err), failErr)
	}
	return id, nil
}

// Apply records one pipeline checkpoint. The table is only changed once the
// store accepted it, except for a failure checkpoint, which is kept in memory
// even when it cannot be persisted so the record never stays mid-pipeline.
// Observers hear about every change that reached the table.
func (s *Service) Apply(ctx context.Context, cp models.Checkpoint) error {
	s.mu.Lock()
	i := s.find(cp.VideoID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("video %s: %w", cp.VideoID, models.ErrNotFound)
	}

	updated, err := domain.ApplyCheckpoint(s.videos[i], cp)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("video %s: %w", cp.VideoID, err)
	}
	next := make([]models.Video, len(s.videos))
	copy(next, s.videos)
	next[i] = updated

	persistErr := s.store.SaveAll(ctx, next)
	if persistErr != nil && updated.Status != models.FailedStatus {
		s.mu.Unlock()
		return fmt.Errorf("persist checkpoint: %w", persistErr)
	}
	s.videos = next
	s.mu.Unlock()

	var sens *models.Sensitivity
	if updated.Status == models.CompletedStatus {
		v := updated.Sensitivity
		sens = &v
	}
	s.observers.notify(s.update(models.CheckpointUpdate, updated, sens))

	if persistErr != nil {
		return fmt.Errorf("persist checkpoint: %w", persistErr)
	}
	return nil
}

// Delete removes the record, stops any running job for it and deletes its
// blob. Nothing is cancelled unless the removal was persisted. When a job
// was running the blob is deleted once the job has exited, in the
// background; Wait blocks until those deletions finish. Blob cleanup
// failures are only logged.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return models.ErrInvalidArgument
	}

	s.mu.Lock()
	i := s.find(id)
	if i < 0 {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	removed := s.videos[i]
	next := make([]models.Video, 0, len(s.videos)-1)
	next = append(next, s.videos[:i]...)
	next = append(next, s.videos[i+1:]...)
	if err := s.store.SaveAll(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist delete: %w", err)
	}
	s.videos = next
	s.mu.Unlock()

	done, running := s.runner.Cancel(id)
	s.observers.notify(s.update(models.DeletedUpdate, removed, nil))

	if running {
		s.logger.Info().Str("video_id", id).Msg("cancelled running pipeline job")
		cleanupCtx := context.WithoutCancel(ctx)
		s.cleanups.Add(1)
		go func() {
			defer s.cleanups.Done()
			<-done
			s.deleteBlob(cleanupCtx, id)
		}()
	} else {
		s.deleteBlob(ctx, id)
	}

	s.logger.Info().Str("video_id", id).Msg("video deleted")
	return nil
}

// Wait blocks until blob deletions started by Delete have finished.
func (s *Service) Wait() {
	s.cleanups.Wait()
}

func (s *Service) deleteBlob(ctx context.Context, id string) {
	if err := s.blobs.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("video_id", id).Msg("failed to delete video blob")
	}
}

// DeleteAs is Delete guarded by CanDelete.
func (s *Service) DeleteAs(ctx context.Context, user models.User, id string) error {
	s.mu.Lock()
	i := s.find(id)
	if i < 0 || !Visible(user, s.videos[i]) {
		s.mu.Unlock()
		return models.ErrNotFound
	}
	allowed := CanDelete(user, s.videos[i])
	s.mu.Unlock()

	if !allowed {
		return models.ErrForbidden
	}
	return s.Delete(ctx, id)
}

// Subscribe registers fn for every create, checkpoint and delete. The
// returned function removes it again. Checkpoint updates are delivered on
// the pipeline job's goroutine, so fn must not block on that job.
func (s *Service) Subscribe(fn func(models.Update)) func() {
	return s.observers.add(fn)
}

// PlaybackReference resolves the stored payload of id into a short-lived
// playback reference. models.ErrNotFound means there is nothing to play.
func (s *Service) PlaybackReference(ctx context.Context, id string) (blob.Reference, error) {
	ref, err := s.linker.Link(ctx, id)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Reference{}, models.ErrNotFound
	}
	if err != nil {
		return blob.Reference{}, fmt.Errorf("playback reference: %w", err)
	}
	return ref, nil
}

func (s *Service) find(id string) int {
	for i := range s.videos {
		if s.videos[i].ID == id {
			return i
		}
	}
	return -1
}

// newID must be called with mu held.
func (s *Service) newID() string {
	for {
		id := s.idGen().String()
		if s.find(id) < 0 {
			return id
		}
	}
}

func (s *Service) update(kind models.UpdateKind, v models.Video, sens *models.Sensitivity) models.Update {
	return models.Update{
		Kind:        kind,
		VideoID:     v.ID,
		OrgID:       v.OrgID,
		Progress:    v.Progress,
		Status:      v.Status,
		Sensitivity: sens,
		OccurredAt:  s.clock().UTC(),
	}
}
