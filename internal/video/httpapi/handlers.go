package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/visiguard/internal/auth"
	"github.com/romariotrain/visiguard/internal/blob"
	"github.com/romariotrain/visiguard/internal/video/catalog"
	"github.com/romariotrain/visiguard/internal/video/models"
	"github.com/romariotrain/visiguard/internal/video/pipeline"
)

type Config struct {
	Catalog        *catalog.Service
	Auth           *auth.Authenticator
	Blobs          blob.Store
	Signer         *blob.Signer
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

type Handler struct {
	svc       *catalog.Service
	auth      *auth.Authenticator
	blobs     blob.Store
	signer    *blob.Signer
	maxUpload int64
	logger    zerolog.Logger
}

func New(cfg Config) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 500 << 20
	}
	return &Handler{
		svc:       cfg.Catalog,
		auth:      cfg.Auth,
		blobs:     cfg.Blobs,
		signer:    cfg.Signer,
		maxUpload: maxUpload,
		logger:    cfg.Logger.With().Str("component", "httpapi").Logger(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, u, err := h.auth.Login(req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownUser) {
			writeErrorJSON(w, http.StatusUnauthorized, "unknown user")
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserResponse(u)})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, user models.User) {
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request, user models.User) {
	videos := h.svc.Search(user, r.URL.Query().Get("q"))

	resp := ListVideosResponse{Videos: make([]VideoResponse, 0, len(videos))}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, toVideoResponse(v, user))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateVideo accepts a multipart upload with fields file, title and description.
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request, user models.User) {
	if !catalog.CanUpload(user) {
		writeErrorJSON(w, http.StatusForbidden, "forbidden")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeErrorJSON(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if data == nil {
		data = []byte{}
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	id, err := h.svc.Create(r.Context(), models.Upload{
		FileName:    header.Filename,
		MimeType:    mimeType,
		Data:        data,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}, user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, CreateVideoResponse{ID: id})
}

func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request, user models.User) {
	v, err := h.svc.Get(user, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(v, user))
}

func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request, user models.User) {
	if err := h.svc.DeleteAs(r.Context(), user, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Playback(w http.ResponseWriter, r *http.Request, user models.User) {
	id := r.PathValue("id")
	if _, err := h.svc.Get(user, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	ref, err := h.svc.PlaybackReference(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlaybackResponse{URL: ref.URL, ExpiresAt: ref.ExpiresAt})
}

// Stream serves a locally stored payload to holders of a signed link.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	if !h.signer.Validate(id, q.Get("expires"), q.Get("sig")) {
		writeErrorJSON(w, http.StatusForbidden, "invalid or expired link")
		return
	}

	data, err := h.blobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error().Err(err).Str("video_id", id).Msg("failed to read blob")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, id, time.Time{}, bytes.NewReader(data))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, user models.User) {
	if user.Role != models.AdminRole {
		writeErrorJSON(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Stats(user))
}

// authenticated resolves the bearer token before calling next.
func (h *Handler) authenticated(next func(http.ResponseWriter, *http.Request, models.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeErrorJSON(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := h.auth.Authenticate(token)
		if err != nil {
			writeErrorJSON(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, user)
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrInvalidArgument):
		writeErrorJSON(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, models.ErrForbidden):
		writeErrorJSON(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, pipeline.ErrJobActive):
		writeErrorJSON(w, http.StatusConflict, "processing already in progress")
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
