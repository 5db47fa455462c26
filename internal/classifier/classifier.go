// Package classifier produces the binary sensitivity verdict for a video
// from its title and description.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/visiguard/internal/video/models"
)

// Model is a sensitivity model that may fail.
type Model interface {
	Evaluate(ctx context.Context, title, description string) (models.Sensitivity, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, title, description string) (models.Sensitivity, error)

func (f ModelFunc) Evaluate(ctx context.Context, title, description string) (models.Sensitivity, error) {
	return f(ctx, title, description)
}

// Static always returns the same verdict. Used when no model is configured.
type Static models.Sensitivity

func (s Static) Evaluate(context.Context, string, string) (models.Sensitivity, error) {
	return models.Sensitivity(s), nil
}

// Policy selects the verdict used when the model fails.
type Policy string

const (
	// FailOpen treats unclassifiable videos as safe.
	FailOpen Policy = "fail-open"
	// FailClosed treats unclassifiable videos as flagged.
	FailClosed Policy = "fail-closed"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailOpen, FailClosed:
		return p, nil
	case "":
		return FailOpen, nil
	default:
		return "", fmt.Errorf("unknown classifier policy %q", s)
	}
}

func (p Policy) Fallback() models.Sensitivity {
	if p == FailClosed {
		return models.FlaggedSensitivity
	}
	return models.SafeSensitivity
}

type Config struct {
	Model   Model
	Policy  Policy
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Classifier wraps a Model so that a verdict is always returned.
type Classifier struct {
	model   Model
	policy  Policy
	timeout time.Duration
	logger  zerolog.Logger
}

func New(cfg Config) (*Classifier, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("classifier model is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative, got: %v", cfg.Timeout)
	}
	policy := cfg.Policy
	if policy == "" {
		policy = FailOpen
	}
	if policy != FailOpen && policy != FailClosed {
		return nil, fmt.Errorf("unknown classifier policy %q", policy)
	}
	return &Classifier{
		model:   cfg.Model,
		policy:  policy,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With().Str("component", "classifier").Logger(),
	}, nil
}

func (c *Classifier) Policy() Policy { return c.policy }

// Classify never fails; model errors, panics and invalid verdicts fall back to the policy verdict.
func (c *Classifier) Classify(ctx context.Context, title, description string) (verdict models.Sensitivity) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Str("policy", string(c.policy)).Msg("classifier panicked, using fallback verdict")
			verdict = c.policy.Fallback()
		}
	}()

	got, err := c.model.Evaluate(ctx, title, description)
	if err == nil && !got.Verdict() {
		err = fmt.Errorf("model returned %q", got)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("policy", string(c.policy)).Msg("sensitivity analysis failed, using fallback verdict")
		return c.policy.Fallback()
	}
	return got
}
