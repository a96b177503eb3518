package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/velvethub/backend/internal/logging"
	"github.com/velvethub/backend/internal/stream"
)

// UploadHandler exposes the resumable upload session and asset status endpoints.
type UploadHandler struct {
	Uploads     UploadSessionCreator
	AssetStatus AssetStatusProvider
}

type createUploadRequest struct {
	FileSize int64  `json:"fileSize"`
	Filename string `json:"filename"`
}

type createUploadResponse struct {
	UploadURL string `json:"uploadURL"`
	UID       string `json:"uid"`
}

// Create handles POST /api/v1/uploads: it asks the stream provider for a
// resumable upload target sized for the file. Failures are terminal; the
// client does not retry session creation.
func (h UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Uploads == nil {
		logger.Error("upload session dependency unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "upload service unavailable")
		return
	}

	var req createUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid upload session payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FileSize <= 0 {
		logger.Warn("upload session invalid file size", "fileSize", req.FileSize)
		respondError(ctx, w, http.StatusBadRequest, "fileSize must be a positive byte count")
		return
	}

	du, err := h.Uploads.CreateDirectUpload(ctx, req.FileSize, req.Filename)
	if err != nil {
		if errors.Is(err, stream.ErrNotConfigured) {
			logger.Error("stream credentials missing")
			respondError(ctx, w, http.StatusInternalServerError, "stream provider credentials not configured")
			return
		}

		var provErr *stream.ProviderError
		if errors.As(err, &provErr) {
			logger.Error("upload session rejected by provider", "status", provErr.StatusCode, "body", provErr.Body)
			respondError(ctx, w, http.StatusBadGateway, provErr.Error())
			return
		}

		logger.Error("create upload session failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create upload session")
		return
	}

	logger.Info("upload session created", "uid", du.UID, "fileSize", req.FileSize)
	respondJSON(ctx, w, http.StatusOK, createUploadResponse{UploadURL: du.UploadURL, UID: du.UID})
}

type assetStatusResponse struct {
	Ready        bool   `json:"ready"`
	PlaybackURL  string `json:"playback_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int    `json:"duration"`
}

// Status handles GET /api/v1/videos/{uid}/status: it reports whether the
// provider finished transcoding, along with the synthesized playback URLs.
func (h UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	uid := strings.TrimSpace(r.PathValue("uid"))
	if uid == "" {
		respondError(ctx, w, http.StatusBadRequest, "asset uid is required")
		return
	}

	if h.AssetStatus == nil {
		logger.Error("asset status dependency unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "status service unavailable")
		return
	}

	status, err := h.AssetStatus.GetVideo(ctx, uid)
	if err != nil {
		if errors.Is(err, stream.ErrNotConfigured) {
			respondError(ctx, w, http.StatusInternalServerError, "stream provider credentials not configured")
			return
		}

		var provErr *stream.ProviderError
		if errors.As(err, &provErr) {
			logger.Warn("asset status lookup failed", "uid", uid, "status", provErr.StatusCode)
			respondError(ctx, w, http.StatusBadGateway, "failed to check asset status")
			return
		}

		logger.Error("asset status lookup failed", "uid", uid, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to check asset status")
		return
	}

	respondJSON(ctx, w, http.StatusOK, assetStatusResponse{
		Ready:        status.Ready,
		PlaybackURL:  h.AssetStatus.PlaybackURL(uid),
		ThumbnailURL: h.AssetStatus.ThumbnailURL(uid),
		Duration:     status.DurationSeconds,
	})
}
