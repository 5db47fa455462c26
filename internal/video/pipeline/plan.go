package pipeline

import (
	"context"
	"fmt"
	"time"
)

type Stage string

const (
	StageTransfer Stage = "transfer"
	StageAnalysis Stage = "analysis"
	StageFinalize Stage = "finalize"
)

// Plan lists the progress checkpoints of each stage. AnalysisStart is
// written as soon as the payload is stored, before the classifier runs.
type Plan struct {
	Transfer      []int
	AnalysisStart int
	Analysis      []int
	Finalize      []int
}

func DefaultPlan() Plan {
	return Plan{
		Transfer:      []int{10, 20, 30},
		AnalysisStart: 40,
		Analysis:      []int{55, 70},
		Finalize:      []int{75, 87, 100},
	}
}

// Validate checks that progress strictly increases across the whole plan
// and that only the last checkpoint reaches 100. The transfer stage must
// report at least once so a job learns its record is gone before the
// payload is written.
func (p Plan) Validate() error {
	if len(p.Transfer) == 0 {
		return fmt.Errorf("plan: transfer stage needs at least one checkpoint")
	}
	if len(p.Finalize) == 0 {
		return fmt.Errorf("plan: finalize stage needs at least one checkpoint")
	}
	if p.Finalize[len(p.Finalize)-1] != 100 {
		return fmt.Errorf("plan: last checkpoint must be 100, got %d", p.Finalize[len(p.Finalize)-1])
	}

	seq := make([]int, 0, len(p.Transfer)+len(p.Analysis)+len(p.Finalize)+1)
	seq = append(seq, p.Transfer...)
	seq = append(seq, p.AnalysisStart)
	seq = append(seq, p.Analysis...)
	seq = append(seq, p.Finalize...)

	prev := 0
	for _, v := range seq {
		if v <= prev {
			return fmt.Errorf("plan: checkpoints must strictly increase above 0, got %d after %d", v, prev)
		}
		if v > 100 {
			return fmt.Errorf("plan: checkpoint %d exceeds 100", v)
		}
		prev = v
	}
	return nil
}

// Pacer decides how long a job waits before reporting a checkpoint.
// A real transfer would report bytes written instead of sleeping.
type Pacer interface {
	Wait(ctx context.Context, stage Stage, progress int) error
}

// TimedPacer sleeps a fixed delay per stage.
type TimedPacer struct {
	Transfer time.Duration
	Analysis time.Duration
	Finalize time.Duration
}

func DefaultPacer() TimedPacer {
	return TimedPacer{
		Transfer: 150 * time.Millisecond,
		Analysis: 300 * time.Millisecond,
		Finalize: 150 * time.Millisecond,
	}
}

func (p TimedPacer) Wait(ctx context.Context, stage Stage, _ int) error {
	var d time.Duration
	switch stage {
	case StageTransfer:
		d = p.Transfer
	case StageAnalysis:
		d = p.Analysis
	case StageFinalize:
		d = p.Finalize
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay reports checkpoints back to back.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context, _ Stage, _ int) error { return ctx.Err() }
