package models

import (
	"encoding/json"
	"time"
)

type UpdateKind string

const (
	CreatedUpdate    UpdateKind = "created"
	CheckpointUpdate UpdateKind = "checkpoint"
	DeletedUpdate    UpdateKind = "deleted"
)

// Update is delivered to catalog observers on every checkpoint, create and delete.
// Sensitivity is set only when the update carries a verdict.
type Update struct {
	Kind        UpdateKind
	VideoID     string
	OrgID       string
	Progress    int
	Status      Status
	Sensitivity *Sensitivity
	OccurredAt  time.Time
}

func (u Update) EventType() string {
	switch u.Kind {
	case CreatedUpdate:
		return "VideoCreated"
	case DeletedUpdate:
		return "VideoDeleted"
	default:
		return "VideoProgressed"
	}
}

func (u Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventType   string       `json:"event_type"`
		VideoID     string       `json:"video_id"`
		OrgID       string       `json:"org_id"`
		Progress    int          `json:"progress"`
		Status      Status       `json:"status"`
		Sensitivity *Sensitivity `json:"sensitivity,omitempty"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}{
		EventType:   u.EventType(),
		VideoID:     u.VideoID,
		OrgID:       u.OrgID,
		Progress:    u.Progress,
		Status:      u.Status,
		Sensitivity: u.Sensitivity,
		OccurredAt:  u.OccurredAt,
	})
}

// Checkpoint is one progress write requested by a pipeline job.
type Checkpoint struct {
	VideoID     string
	Progress    int
	Status      Status
	Sensitivity *Sensitivity
}
