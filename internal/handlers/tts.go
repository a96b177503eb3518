package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/velvethub/backend/internal/logging"
	"github.com/velvethub/backend/internal/tts"
)

const maxSpeechTextLength = 1000

// TTSHandler converts reply text into a playable audio data URL.
type TTSHandler struct {
	Speech  SpeechSynthesizer
	Limiter RateLimiter
}

type ttsRequest struct {
	Text       string `json:"text"`
	VoiceID    string `json:"voiceId"`
	VoiceModel string `json:"voiceModel"`
}

type ttsResponse struct {
	AudioURL string `json:"audioUrl"`
}

// Handle processes POST /api/v1/tts.
func (h TTSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Limiter != nil && !h.Limiter.Allow(clientIP(r)) {
		respondError(ctx, w, http.StatusTooManyRequests, "too many speech requests, slow down")
		return
	}

	if h.Speech == nil {
		respondError(ctx, w, http.StatusInternalServerError, "speech services unavailable")
		return
	}

	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	switch {
	case req.Text == "":
		respondError(ctx, w, http.StatusBadRequest, "text is required")
		return
	case len(req.Text) > maxSpeechTextLength:
		respondError(ctx, w, http.StatusBadRequest, "text exceeds maximum length")
		return
	case strings.TrimSpace(req.VoiceID) == "":
		respondError(ctx, w, http.StatusBadRequest, "voiceId is required")
		return
	}

	audioURL, err := h.Speech.Synthesize(ctx, req.Text, req.VoiceID, req.VoiceModel)
	if err != nil {
		var provider *tts.ProviderError
		switch {
		case errors.Is(err, tts.ErrNotConfigured):
			respondError(ctx, w, http.StatusInternalServerError, "speech provider credentials not configured")
		case errors.As(err, &provider):
			logger.Warn("speech provider rejected request", "status", provider.StatusCode, "voiceId", req.VoiceID)
			respondError(ctx, w, http.StatusBadGateway, "speech provider error")
		default:
			logger.Error("speech synthesis failed", "voiceId", req.VoiceID, "error", err)
			respondError(ctx, w, http.StatusBadGateway, "failed to reach speech provider")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, ttsResponse{AudioURL: audioURL})
}
