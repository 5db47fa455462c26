package domain

import (
	"fmt"

	"github.com/romariotrain/visiguard/internal/video/models"
)

// RecoveryPolicy decides what happens to records whose job did not survive a restart.
type RecoveryPolicy string

const (
	// RecoverComplete coerces orphaned records to completed and promotes a
	// pending verdict to safe. Interrupted uploads end up listed as safe.
	RecoverComplete RecoveryPolicy = "complete"
	// RecoverFail marks orphaned records failed so they must be uploaded again.
	RecoverFail RecoveryPolicy = "fail"
)

func ParseRecoveryPolicy(s string) (RecoveryPolicy, error) {
	switch p := RecoveryPolicy(s); p {
	case RecoverComplete, RecoverFail:
		return p, nil
	case "":
		return RecoverComplete, nil
	default:
		return "", fmt.Errorf("unknown recovery policy %q", s)
	}
}

// Recover repairs v if it was left in a non-terminal state. It reports whether v changed.
func (p RecoveryPolicy) Recover(v models.Video) (models.Video, bool) {
	if v.Status.Terminal() {
		return v, false
	}
	switch p {
	case RecoverFail:
		v.Status = models.FailedStatus
	default:
		v.Status = models.CompletedStatus
		v.Progress = 100
		if v.Sensitivity == models.PendingSensitivity || !v.Sensitivity.Valid() {
			v.Sensitivity = models.SafeSensitivity
		}
	}
	return v, true
}
