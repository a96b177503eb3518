// Package tts wraps the ElevenLabs text-to-speech API, returning synthesized
// audio as a playable data URL.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/velvethub/backend/internal/config"
)

// ErrNotConfigured indicates the provider API key is missing.
var ErrNotConfigured = errors.New("speech provider API key not configured")

// ProviderError carries the provider's own error text.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("speech provider error (%d): %s", e.StatusCode, e.Body)
}

// Client calls the ElevenLabs text-to-speech endpoint.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
}

// NewClient constructs a TTS client from configuration.
func NewClient(cfg config.TTSConfig) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		defaultModel: cfg.VoiceModel,
	}
}

// Configured reports whether the provider key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Synthesize converts text to speech with the given voice, returning the
// audio bytes as a data URL the browser can hand straight to an audio
// element. An empty modelID falls back to the configured default.
func (c *Client) Synthesize(ctx context.Context, text, voiceID, modelID string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text is required")
	}
	if strings.TrimSpace(voiceID) == "" {
		return "", errors.New("voice id is required")
	}
	if modelID == "" {
		modelID = c.defaultModel
	}

	payload := map[string]string{
		"text":     text,
		"model_id": modelID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call speech provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read audio stream: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("speech provider returned empty audio")
	}

	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio), nil
}
