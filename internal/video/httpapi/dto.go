package httpapi

import (
	"time"

	"github.com/romariotrain/visiguard/internal/video/catalog"
	"github.com/romariotrain/visiguard/internal/video/models"
)

type LoginRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	OrgID  string      `json:"orgId"`
	Role   models.Role `json:"role"`
	Avatar string      `json:"avatar,omitempty"`
}

type VideoResponse struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	FileName     string             `json:"fileName"`
	FileSize     int64              `json:"fileSize"`
	MimeType     string             `json:"mimeType"`
	UploadedBy   string             `json:"uploadedBy"`
	OrgID        string             `json:"orgId"`
	Status       models.Status      `json:"status"`
	Sensitivity  models.Sensitivity `json:"sensitivity"`
	Progress     int                `json:"progress"`
	ThumbnailURL string             `json:"thumbnailUrl"`
	CreatedAt    time.Time          `json:"createdAt"`
	CanDelete    bool               `json:"canDelete"`
}

type ListVideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

type CreateVideoResponse struct {
	ID string `json:"id"`
}

type PlaybackResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		OrgID:  u.OrgID,
		Role:   u.Role,
		Avatar: u.Avatar,
	}
}

func toVideoResponse(v models.Video, viewer models.User) VideoResponse {
	return VideoResponse{
		ID:           v.ID,
		Title:        v.Title,
		Description:  v.Description,
		FileName:     v.FileName,
		FileSize:     v.FileSize,
		MimeType:     v.MimeType,
		UploadedBy:   v.UploadedBy,
		OrgID:        v.OrgID,
		Status:       v.Status,
		Sensitivity:  v.Sensitivity,
		Progress:     v.Progress,
		ThumbnailURL: v.ThumbnailURL,
		CreatedAt:    v.CreatedAt,
		CanDelete:    catalog.CanDelete(viewer, v),
	}
}
