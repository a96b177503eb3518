package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/velvethub/backend/internal/logging"
	"github.com/velvethub/backend/internal/models"
	"github.com/velvethub/backend/internal/repositories"
	"github.com/velvethub/backend/internal/storage"
)

const maxMetadataFormMemory = 32 << 20

// VideoHandler provides catalog endpoints: metadata persistence and browsing.
type VideoHandler struct {
	Videos     VideoStore
	Categories CategoryStore
	Images     storage.ImageStore
}

type videoResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	SliderURL       string    `json:"slider_url"`
	StreamUID       string    `json:"stream_uid"`
	PlaybackURL     string    `json:"playback_url"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

func toVideoResponse(v models.Video) videoResponse {
	return videoResponse{
		ID:              v.ID,
		Title:           v.Title,
		ThumbnailURL:    v.ThumbnailURL,
		SliderURL:       v.SliderURL,
		StreamUID:       v.StreamUID,
		PlaybackURL:     v.PlaybackURL,
		DurationSeconds: v.DurationSeconds,
		CreatedAt:       v.CreatedAt,
	}
}

// Create handles POST /api/v1/videos: one multipart request carrying title,
// both images, the provider asset id, the synthesized URLs, the duration,
// and the category id list. Images go to object storage, then the video row
// is inserted, then one join row per category. Category link failures are
// logged and tolerated; a video with zero linked categories is preferable to
// rolling back the row.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil || h.Images == nil {
		logger.Error("catalog dependencies unavailable", "hasVideos", h.Videos != nil, "hasImages", h.Images != nil)
		respondError(ctx, w, http.StatusInternalServerError, "catalog services unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxMetadataFormMemory); err != nil {
		logger.Warn("invalid multipart payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	streamUID := strings.TrimSpace(r.FormValue("stream_uid"))
	playbackURL := strings.TrimSpace(r.FormValue("playback_url"))
	providerThumbURL := strings.TrimSpace(r.FormValue("thumbnail_url"))
	duration, _ := strconv.Atoi(r.FormValue("duration_seconds"))
	categoryIDs := splitCategories(r.FormValue("categories"))

	thumbFile, thumbHeader, thumbErr := r.FormFile("thumbnail")
	sliderFile, sliderHeader, sliderErr := r.FormFile("slider")

	switch {
	case title == "":
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	case streamUID == "":
		respondError(ctx, w, http.StatusBadRequest, "stream_uid is required")
		return
	case thumbErr != nil:
		respondError(ctx, w, http.StatusBadRequest, "thumbnail image is required")
		return
	case sliderErr != nil:
		closeQuietly(thumbFile)
		respondError(ctx, w, http.StatusBadRequest, "slider image is required")
		return
	case len(categoryIDs) == 0:
		closeQuietly(thumbFile, sliderFile)
		respondError(ctx, w, http.StatusBadRequest, "at least one category is required")
		return
	}
	defer closeQuietly(thumbFile, sliderFile)

	thumbKey := storage.ImageKey("thumbnails", streamUID, thumbHeader.Filename)
	thumbnailURL, err := h.Images.Save(ctx, thumbKey, thumbHeader.Header.Get("Content-Type"), thumbFile)
	if err != nil {
		logger.Error("thumbnail upload failed", "key", thumbKey, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail image")
		return
	}

	sliderKey := storage.ImageKey("sliders", streamUID, sliderHeader.Filename)
	sliderURL, err := h.Images.Save(ctx, sliderKey, sliderHeader.Header.Get("Content-Type"), sliderFile)
	if err != nil {
		logger.Error("slider upload failed", "key", sliderKey, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store slider image")
		return
	}

	if duration < 0 {
		duration = 0
	}

	video := models.Video{
		ID:              uuid.NewString(),
		Title:           title,
		ThumbnailURL:    thumbnailURL,
		SliderURL:       sliderURL,
		StreamUID:       streamUID,
		PlaybackURL:     playbackURL,
		DurationSeconds: duration,
		CreatedAt:       time.Now().UTC(),
	}
	if video.ThumbnailURL == "" {
		video.ThumbnailURL = providerThumbURL
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "video already exists")
			return
		}
		logger.Error("video insert failed", "streamUid", streamUID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create video record")
		return
	}

	// Link failures leave the video row in place.
	for _, categoryID := range categoryIDs {
		if err := h.Videos.LinkCategory(ctx, video.ID, categoryID); err != nil {
			logger.Warn("category link failed", "videoId", video.ID, "categoryId", categoryID, "error", err)
		}
	}

	logger.Info("video created", "videoId", video.ID, "streamUid", streamUID, "categories", len(categoryIDs))
	respondJSON(ctx, w, http.StatusCreated, toVideoResponse(video))
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Videos == nil {
		respondError(ctx, w, http.StatusInternalServerError, "catalog services unavailable")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	videos, err := h.Videos.List(ctx, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list videos failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	out := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": out})
}

// ListByCategory handles GET /api/v1/categories/{id}/videos.
func (h VideoHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categoryID := strings.TrimSpace(r.PathValue("id"))
	if categoryID == "" {
		respondError(ctx, w, http.StatusBadRequest, "category id is required")
		return
	}

	if h.Videos == nil {
		respondError(ctx, w, http.StatusInternalServerError, "catalog services unavailable")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	videos, err := h.Videos.ListByCategory(ctx, categoryID, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list videos by category failed", "categoryId", categoryID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	out := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": out})
}

// ListCategories handles GET /api/v1/categories.
func (h VideoHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Categories == nil {
		respondError(ctx, w, http.StatusInternalServerError, "catalog services unavailable")
		return
	}

	categories, err := h.Categories.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list categories failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	type categoryResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"categories": out})
}

func splitCategories(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func closeQuietly(files ...multipart.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
