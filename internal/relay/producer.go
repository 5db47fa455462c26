package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	WriteTimeout time.Duration
	BatchSize    int
	Async        bool
	Logger       zerolog.Logger
}

type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

type producerMetrics struct {
	MessagesPublished atomic.Int64
	MessagesFailed    atomic.Int64
	RetriesTotal      atomic.Int64
	PublishDuration   atomic.Int64
}

type ProducerMetrics struct {
	MessagesPublished int64
	MessagesFailed    int64
	RetriesTotal      int64
	AvgPublishTime    time.Duration
}

// Producer writes keyed messages to one Kafka topic with bounded retries.
type Producer struct {
	writer  *kafkago.Writer
	config  ProducerConfig
	logger  zerolog.Logger
	metrics producerMetrics
	closed  atomic.Bool
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid producer config: %w", err)
	}
	setDefaults(&cfg)

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequireAll,
		Async:        cfg.Async,
	}

	return &Producer{
		writer: writer,
		config: cfg,
		logger: cfg.Logger.With().Str("component", "kafka_producer").Str("topic", cfg.Topic).Logger(),
	}, nil
}

func validateConfig(cfg *ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("brokers list is empty")
	}
	if cfg.Topic == "" {
		return errors.New("topic is empty")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}
	if cfg.RetryBackoff < 0 {
		return errors.New("retry_backoff cannot be negative")
	}
	if cfg.WriteTimeout < 0 {
		return errors.New("write_timeout cannot be negative")
	}
	return nil
}

func setDefaults(cfg *ProducerConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	return p.PublishBatch(ctx, []Message{{Key: key, Value: value}})
}

// PublishBatch writes messages in one request, retrying transient broker
// errors with linear backoff.
func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}
	if len(messages) == 0 {
		return nil
	}

	batch := make([]kafkago.Message, 0, len(messages))
	for _, m := range messages {
		km := kafkago.Message{Key: []byte(m.Key), Value: m.Value}
		for k, v := range m.Headers {
			km.Headers = append(km.Headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
		batch = append(batch, km)
	}

	start := time.Now()
	var err error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.metrics.RetriesTotal.Add(1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * p.config.RetryBackoff):
			}
		}

		err = p.writer.WriteMessages(ctx, batch...)
		if err == nil {
			p.metrics.MessagesPublished.Add(int64(len(batch)))
			p.metrics.PublishDuration.Add(int64(time.Since(start)))
			return nil
		}
		if !isRetriableError(err) {
			break
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Int("messages", len(batch)).Msg("kafka write failed, retrying")
	}

	p.metrics.MessagesFailed.Add(int64(len(batch)))
	return fmt.Errorf("kafka publish: %w", err)
}

// HealthCheck dials the first reachable broker.
func (p *Producer) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return errors.New("producer is closed")
	}
	var lastErr error
	for _, broker := range p.config.Brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (p *Producer) GetMetrics() ProducerMetrics {
	published := p.metrics.MessagesPublished.Load()
	var avg time.Duration
	if published > 0 {
		avg = time.Duration(p.metrics.PublishDuration.Load() / published)
	}
	return ProducerMetrics{
		MessagesPublished: published,
		MessagesFailed:    p.metrics.MessagesFailed.Load(),
		RetriesTotal:      p.metrics.RetriesTotal.Load(),
		AvgPublishTime:    avg,
	}
}

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return errors.New("producer already closed")
	}
	return p.writer.Close()
}

func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{"invalid", "too large", "authorization", "authentication"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}
