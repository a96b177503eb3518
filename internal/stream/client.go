// Package stream talks to the Cloudflare Stream API: creating resumable
// upload sessions, checking transcode state, and synthesizing playback URLs
// from the provider's naming convention.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/velvethub/backend/internal/config"
)

var (
	// ErrNotConfigured indicates the provider credentials are missing.
	ErrNotConfigured = errors.New("stream provider credentials not configured")
	// ErrNoUploadURL indicates the provider accepted the session request but
	// returned no Location header.
	ErrNoUploadURL = errors.New("stream provider returned no upload URL")
)

// ProviderError carries the provider's own error text alongside the status code.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stream provider error (%d): %s", e.StatusCode, e.Body)
}

// DirectUpload describes a resumable upload session created on the provider.
type DirectUpload struct {
	UploadURL string
	UID       string
}

// VideoStatus is the provider's view of an uploaded asset.
type VideoStatus struct {
	State           string
	Ready           bool
	DurationSeconds int
}

// Client is a thin typed wrapper around the Stream HTTP API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	accountID  string
	apiToken   string
	subdomain  string
}

// NewClient constructs a Stream client from configuration. Missing
// credentials are tolerated here so the service can boot without them; calls
// fail with ErrNotConfigured.
func NewClient(cfg config.StreamConfig) *Client {
	subdomain := cfg.CustomerSubdomain
	if subdomain == "" && cfg.AccountID != "" {
		subdomain = fmt.Sprintf("customer-%s.cloudflarestream.com", cfg.AccountID)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiBase:    strings.TrimSuffix(cfg.APIBase, "/"),
		accountID:  cfg.AccountID,
		apiToken:   cfg.APIToken,
		subdomain:  subdomain,
	}
}

// Configured reports whether provider credentials are present.
func (c *Client) Configured() bool {
	return c.accountID != "" && c.apiToken != ""
}

// CreateDirectUpload asks the provider for a resumable upload target sized
// for the provided byte length. The returned upload URL is handed to the
// chunked transfer step; the UID identifies the asset from then on.
func (c *Client) CreateDirectUpload(ctx context.Context, size int64, filename string) (DirectUpload, error) {
	if !c.Configured() {
		return DirectUpload{}, ErrNotConfigured
	}
	if size <= 0 {
		return DirectUpload{}, fmt.Errorf("invalid file size %d", size)
	}

	url := fmt.Sprintf("%s/accounts/%s/stream?direct_user=true", c.apiBase, c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return DirectUpload{}, fmt.Errorf("create upload session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Tus-Resumable", "1.0.0")
	req.Header.Set("Upload-Length", strconv.FormatInt(size, 10))
	if filename != "" {
		req.Header.Set("Upload-Metadata", "filename "+base64Encode(filename))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DirectUpload{}, fmt.Errorf("request upload session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return DirectUpload{}, &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	uploadURL := resp.Header.Get("Location")
	if uploadURL == "" {
		return DirectUpload{}, ErrNoUploadURL
	}

	parts := strings.Split(strings.TrimSuffix(uploadURL, "/"), "/")
	uid := parts[len(parts)-1]
	if idx := strings.IndexAny(uid, "?#"); idx >= 0 {
		uid = uid[:idx]
	}

	return DirectUpload{UploadURL: uploadURL, UID: uid}, nil
}

// GetVideo queries the provider for the transcode state of one asset.
func (c *Client) GetVideo(ctx context.Context, uid string) (VideoStatus, error) {
	if !c.Configured() {
		return VideoStatus{}, ErrNotConfigured
	}
	if strings.TrimSpace(uid) == "" {
		return VideoStatus{}, errors.New("asset uid is required")
	}

	url := fmt.Sprintf("%s/accounts/%s/stream/%s", c.apiBase, c.accountID, uid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return VideoStatus{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VideoStatus{}, fmt.Errorf("request asset status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return VideoStatus{}, &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Result struct {
			UID      string  `json:"uid"`
			Duration float64 `json:"duration"`
			Status   struct {
				State string `json:"state"`
			} `json:"status"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return VideoStatus{}, fmt.Errorf("parse asset status: %w", err)
	}

	state := payload.Result.Status.State
	duration := payload.Result.Duration
	if duration < 0 {
		duration = 0
	}

	return VideoStatus{
		State:           state,
		Ready:           state == "ready",
		DurationSeconds: int(duration + 0.5),
	}, nil
}

// PlaybackURL synthesizes the HLS manifest URL from the provider's naming
// convention. It may go stale if the provider changes its URL scheme.
func (c *Client) PlaybackURL(uid string) string {
	return fmt.Sprintf("https://%s/%s/manifest/video.m3u8", c.subdomain, uid)
}

// ThumbnailURL synthesizes the provider-generated thumbnail URL.
func (c *Client) ThumbnailURL(uid string) string {
	return fmt.Sprintf("https://%s/%s/thumbnails/thumbnail.jpg", c.subdomain, uid)
}
