// Package pipeline drives one video from upload to a terminal state:
// transfer checkpoints, payload storage, sensitivity analysis and
// finalization, reporting every checkpoint to a Sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/visiguard/internal/blob"
	"github.com/romariotrain/visiguard/internal/video/models"
)

var (
	ErrJobActive = errors.New("pipeline job already active")
	ErrClosed    = errors.New("pipeline engine is shut down")
)

// Sink receives checkpoints. It returns models.ErrNotFound once the video is gone.
type Sink interface {
	Apply(ctx context.Context, cp models.Checkpoint) error
}

// Classifier always returns a verdict.
type Classifier interface {
	Classify(ctx context.Context, title, description string) models.Sensitivity
}

// Job is the input of one pipeline run.
type Job struct {
	VideoID     string
	Title       string
	Description string
	MimeType    string
	Data        []byte
}

type Config struct {
	Blobs      blob.Store
	Classifier Classifier
	Pacer      Pacer
	Plan       *Plan
	Metrics    *Metrics
	Logger     zerolog.Logger
}

type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine runs jobs on their own goroutines and keeps a registry keyed by
// video id so a job can be cancelled when its video is deleted.
type Engine struct {
	blobs      blob.Store
	classifier Classifier
	pacer      Pacer
	plan       Plan
	metrics    *Metrics
	logger     zerolog.Logger
	clock      func() time.Time

	mu     sync.Mutex
	jobs   map[string]*handle
	closed bool
	wg     sync.WaitGroup
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	plan := DefaultPlan()
	if cfg.Plan != nil {
		plan = *cfg.Plan
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	pacer := cfg.Pacer
	if pacer == nil {
		pacer = DefaultPacer()
	}

	return &Engine{
		blobs:      cfg.Blobs,
		classifier: cfg.Classifier,
		pacer:      pacer,
		plan:       plan,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "pipeline").Logger(),
		clock:      time.Now,
		jobs:       make(map[string]*handle),
	}, nil
}

// Submit starts job in the background and returns immediately.
func (e *Engine) Submit(job Job, sink Sink) error {
	if job.VideoID == "" || sink == nil {
		return models.ErrInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if _, ok := e.jobs[job.VideoID]; ok {
		return fmt.Errorf("%w: %s", ErrJobActive, job.VideoID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{cancel: cancel, done: make(chan struct{})}
	e.jobs[job.VideoID] = h
	e.wg.Add(1)

	go e.run(ctx, job, sink, h)
	return nil
}

// Cancel signals the job for id to stop and returns a channel closed once
// it has exited. It does not wait, so it is safe to call from code running
// on the job's own goroutine, such as a catalog observer. ok reports whether
// a job was running.
func (e *Engine) Cancel(id string) (done <-chan struct{}, ok bool) {
	e.mu.Lock()
	h, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	h.cancel()
	return h.done, true
}

func (e *Engine) Active(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.jobs[id]
	return ok
}

// Wait blocks until every submitted job has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Shutdown rejects new jobs and waits for running ones. When ctx expires
// first, the remaining jobs are cancelled and left non-terminal; they are
// repaired on the next start.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.mu.Lock()
		for _, h := range e.jobs {
			h.cancel()
		}
		e.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, job Job, sink Sink, h *handle) {
	started := e.clock()
	log := e.logger.With().Str("video_id", job.VideoID).Logger()
	e.metrics.started()

	defer func() {
		h.cancel()
		e.mu.Lock()
		delete(e.jobs, job.VideoID)
		e.mu.Unlock()
		close(h.done)
		e.wg.Done()
	}()

	err := e.execute(ctx, job, sink, log)

	switch {
	case err == nil:
		e.metrics.finished(outcomeCompleted, e.clock().Sub(started))
		log.Info().Dur("elapsed", e.clock().Sub(started)).Msg("pipeline completed")

	case ctx.Err() != nil, errors.Is(err, models.ErrNotFound):
		// Deleted or shutting down: leave no trace.
		e.metrics.finished(outcomeAbandoned, e.clock().Sub(started))
		log.Info().Err(err).Msg("pipeline abandoned")

	default:
		e.metrics.finished(outcomeFailed, e.clock().Sub(started))
		log.Error().Err(err).Msg("pipeline failed")
		failCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if ferr := sink.Apply(failCtx, models.Checkpoint{VideoID: job.VideoID, Status: models.FailedStatus}); ferr != nil {
			log.Error().Err(ferr).Msg("failed to record pipeline failure")
		}
	}
}

func (e *Engine) execute(ctx context.Context, job Job, sink Sink, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	for _, p := range e.plan.Transfer {
		if err := e.step(ctx, sink, job.VideoID, StageTransfer, p, models.UploadingStatus, nil, true); err != nil {
			return err
		}
	}

	if err := e.blobs.Put(ctx, job.VideoID, job.Data, job.MimeType); err != nil {
		return fmt.Errorf("store payload: %w", err)
	}
	log.Debug().Int("bytes", len(job.Data)).Msg("payload stored")

	if err := e.step(ctx, sink, job.VideoID, StageAnalysis, e.plan.AnalysisStart, models.ProcessingStatus, nil, false); err != nil {
		return err
	}

	verdict := e.classifier.Classify(ctx, job.Title, job.Description)
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().Str("sensitivity", string(verdict)).Msg("sensitivity analysis finished")

	for _, p := range e.plan.Analysis {
		if err := e.step(ctx, sink, job.VideoID, StageAnalysis, p, models.ProcessingStatus, nil, true); err != nil {
			return err
		}
	}

	for _, p := range e.plan.Finalize {
		status := models.ProcessingStatus
		var sens *models.Sensitivity
		if p == 100 {
			status = models.CompletedStatus
			sens = &verdict
		}
		if err := e.step(ctx, sink, job.VideoID, StageFinalize, p, status, sens, true); err != nil {
			return err
		}
	}
	e.metrics.verdict(verdict)
	return nil
}

func (e *Engine) step(ctx context.Context, sink Sink, id string, stage Stage, progress int, status models.Status, sens *models.Sensitivity, wait bool) error {
	if wait {
		if err := e.pacer.Wait(ctx, stage, progress); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sink.Apply(ctx, models.Checkpoint{
		VideoID:     id,
		Progress:    progress,
		Status:      status,
		Sensitivity: sens,
	}); err != nil {
		return fmt.Errorf("%s checkpoint %d: %w", stage, progress, err)
	}
	e.metrics.checkpoint(stage)
	return nil
}
