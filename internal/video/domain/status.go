package domain

import (
	"fmt"

	"github.com/romariotrain/visiguard/internal/video/models"
)

func CanTransition(from, to models.Status) bool {
	switch from {
	case models.UploadingStatus:
		return to == models.UploadingStatus || to == models.ProcessingStatus || to == models.FailedStatus
	case models.ProcessingStatus:
		return to == models.ProcessingStatus || to == models.CompletedStatus || to == models.FailedStatus
	case models.CompletedStatus:
		return false
	case models.FailedStatus:
		return false
	default:
		return false
	}
}

func ValidateTransition(from, to models.Status) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ApplyCheckpoint validates cp against v and returns the updated copy.
// A failing checkpoint keeps the last known progress and never sets a verdict.
func ApplyCheckpoint(v models.Video, cp models.Checkpoint) (models.Video, error) {
	if err := ValidateTransition(v.Status, cp.Status); err != nil {
		return v, err
	}
	if cp.Progress < 0 || cp.Progress > 100 {
		return v, fmt.Errorf("progress %d out of range", cp.Progress)
	}

	if cp.Status == models.FailedStatus {
		v.Status = models.FailedStatus
		return v, nil
	}

	if cp.Progress < v.Progress {
		return v, fmt.Errorf("%w: %d -> %d", ErrProgressRegression, v.Progress, cp.Progress)
	}

	if cp.Status == models.CompletedStatus {
		if cp.Progress != 100 || cp.Sensitivity == nil || !cp.Sensitivity.Verdict() {
			return v, ErrIncomplete
		}
	}

	v.Progress = cp.Progress
	v.Status = cp.Status
	if cp.Sensitivity != nil && cp.Status == models.CompletedStatus {
		v.Sensitivity = *cp.Sensitivity
	}
	return v, nil
}
