// Package relay forwards catalog updates to Kafka.
//
// Updates are queued in memory by a catalog observer and flushed in batches
// by a ticker loop. A failed batch stays at the head of the queue and is
// retried on the next tick, so delivery is at-least-once while the process
// lives. The queue is bounded: when the broker is unreachable for long the
// oldest updates are dropped.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/visiguard/internal/video/models"
)

// BatchProducer is the part of Producer the publisher needs.
type BatchProducer interface {
	PublishBatch(ctx context.Context, messages []Message) error
}

// Source is something that emits catalog updates.
type Source interface {
	Subscribe(fn func(models.Update)) func()
}

type PublisherConfig struct {
	Source    Source
	Producer  BatchProducer
	Interval  time.Duration
	BatchSize int
	MaxQueue  int
	Logger    zerolog.Logger
}

type Publisher struct {
	source    Source
	producer  BatchProducer
	interval  time.Duration
	batchSize int
	maxQueue  int
	logger    zerolog.Logger

	mu      sync.Mutex
	queue   []Message
	dropped int
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("update source is required")
	}
	if cfg.Producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got: %v", cfg.Interval)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got: %d", cfg.BatchSize)
	}
	maxQueue := cfg.MaxQueue
	if maxQueue <= 0 {
		maxQueue = 100 * cfg.BatchSize
	}

	return &Publisher{
		source:    cfg.Source,
		producer:  cfg.Producer,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		maxQueue:  maxQueue,
		logger:    cfg.Logger.With().Str("component", "update_relay").Logger(),
	}, nil
}

// Start subscribes to the source and flushes the queue every interval until
// ctx is cancelled. Whatever is still queued then gets one last flush.
func (p *Publisher) Start(ctx context.Context) error {
	unsubscribe := p.source.Subscribe(p.enqueue)
	defer unsubscribe()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().
		Dur("interval", p.interval).
		Int("batch_size", p.batchSize).
		Msg("update relay started")

	for {
		select {
		case <-ctx.Done():
			unsubscribe()
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.flush(flushCtx); err != nil {
				p.logger.Warn().Err(err).Int("pending", p.Pending()).Msg("final flush failed")
			}
			cancel()
			p.logger.Info().Err(ctx.Err()).Msg("update relay stopped")
			return ctx.Err()

		case <-ticker.C:
			if err := p.flush(ctx); err != nil {
				p.logger.Error().Err(err).Int("pending", p.Pending()).Msg("failed to publish batch")
			}
		}
	}
}

// Pending reports how many updates wait for delivery.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Publisher) enqueue(u models.Update) {
	value, err := json.Marshal(u)
	if err != nil {
		p.logger.Error().Err(err).Str("video_id", u.VideoID).Msg("failed to encode update")
		return
	}
	msg := Message{
		Key:   u.VideoID,
		Value: value,
		Headers: map[string]string{
			"event_type": u.EventType(),
			"org_id":     u.OrgID,
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) >= p.maxQueue {
		p.queue = p.queue[1:]
		p.dropped++
		if p.dropped == 1 || p.dropped%p.batchSize == 0 {
			p.logger.Warn().Int("dropped", p.dropped).Msg("relay queue full, dropping oldest updates")
		}
	}
	p.queue = append(p.queue, msg)
}

// flush publishes queued updates batch by batch and stops at the first failure.
func (p *Publisher) flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		n := min(len(p.queue), p.batchSize)
		batch := append([]Message(nil), p.queue[:n]...)
		droppedBefore := p.dropped
		p.mu.Unlock()

		if n == 0 {
			return nil
		}
		if err := p.producer.PublishBatch(ctx, batch); err != nil {
			return fmt.Errorf("publish %d updates: %w", n, err)
		}

		p.mu.Lock()
		// enqueue may have dropped part of the batch from the head meanwhile.
		sent := max(n-(p.dropped-droppedBefore), 0)
		p.queue = p.queue[min(sent, len(p.queue)):]
		p.mu.Unlock()

		p.logger.Debug().Int("published", n).Msg("update batch published")
	}
}
