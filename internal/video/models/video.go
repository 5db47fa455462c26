package models

import (
	"time"
)

type Status string

const (
	UploadingStatus  Status = "uploading"
	ProcessingStatus Status = "processing"
	CompletedStatus  Status = "completed"
	FailedStatus     Status = "failed"
)

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == CompletedStatus || s == FailedStatus
}

func (s Status) Valid() bool {
	switch s {
	case UploadingStatus, ProcessingStatus, CompletedStatus, FailedStatus:
		return true
	}
	return false
}

type Sensitivity string

const (
	PendingSensitivity Sensitivity = "pending"
	SafeSensitivity    Sensitivity = "safe"
	FlaggedSensitivity Sensitivity = "flagged"
)

// Verdict reports whether s is a classifier outcome rather than pending.
func (s Sensitivity) Verdict() bool {
	return s == SafeSensitivity || s == FlaggedSensitivity
}

func (s Sensitivity) Valid() bool {
	return s == PendingSensitivity || s.Verdict()
}

// Video is the metadata record for one uploaded asset and its pipeline state.
type Video struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	FileName     string      `json:"fileName"`
	FileSize     int64       `json:"fileSize"`
	MimeType     string      `json:"mimeType"`
	UploadedBy   string      `json:"uploadedBy"`
	OrgID        string      `json:"orgId"`
	Status       Status      `json:"status"`
	Sensitivity  Sensitivity `json:"sensitivity"`
	Progress     int         `json:"progress"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Upload carries the raw payload and descriptive fields of a new video.
type Upload struct {
	FileName    string
	MimeType    string
	Data        []byte
	Title       string
	Description string
}
