package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CatalogClient submits video metadata to the backend's own catalog endpoint
// as a multipart request, the same shape the admin form sends.
type CatalogClient struct {
	HTTPClient *http.Client
	BaseURL    string
	AdminKey   string
}

// SubmitVideo posts the metadata record. Non-2xx responses surface the
// server's error text.
func (c *CatalogClient) SubmitVideo(ctx context.Context, meta VideoMeta) error {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":            meta.Title,
		"stream_uid":       meta.StreamUID,
		"playback_url":     meta.PlaybackURL,
		"thumbnail_url":    meta.ThumbnailURL,
		"duration_seconds": strconv.Itoa(meta.DurationSeconds),
		"categories":       strings.Join(meta.CategoryIDs, ","),
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for _, part := range []struct {
		field string
		file  FilePart
	}{
		{"thumbnail", meta.Thumbnail},
		{"slider", meta.Slider},
	} {
		fw, err := w.CreateFormFile(part.field, part.file.Name)
		if err != nil {
			return fmt.Errorf("create form file %s: %w", part.field, err)
		}
		if _, err := io.Copy(fw, part.file.Content); err != nil {
			return fmt.Errorf("copy %s: %w", part.field, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	url := strings.TrimSuffix(c.BaseURL, "/") + "/api/v1/videos"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("create catalog request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.AdminKey != "" {
		req.Header.Set("X-Admin-Key", c.AdminKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("submit catalog metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return fmt.Errorf("catalog rejected metadata (%d): %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("catalog rejected metadata with status %d", resp.StatusCode)
	}

	return nil
}

var _ CatalogSubmitter = (*CatalogClient)(nil)
