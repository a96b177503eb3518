package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/velvethub/backend/internal/config"
)

// Turn is one entry in the conversation history forwarded to the provider.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles recognised in turn histories. System turns are stripped from client
// input; the service injects exactly one of its own.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage is the provider's token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is a successful provider reply.
type Completion struct {
	Message string
	Model   string
	Usage   Usage
}

// ErrNoResponse indicates the provider answered without any message content.
var ErrNoResponse = errors.New("no response from completion provider")

// ErrNotConfigured indicates the provider API key is missing.
var ErrNotConfigured = errors.New("completion provider API key not configured")

// UpstreamError preserves the provider's own error text for the client.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion provider error (%d): %s", e.StatusCode, e.Message)
}

// Completer generates an assistant reply for the provided turn history.
type Completer interface {
	Complete(ctx context.Context, cfg ModelConfig, turns []Turn) (Completion, error)
}

// CompletionClient talks to an OpenRouter-compatible chat completions
// endpoint over plain HTTP.
type CompletionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	referer    string
	title      string
}

// NewCompletionClient constructs a client from configuration.
func NewCompletionClient(cfg config.ChatConfig) *CompletionClient {
	return &CompletionClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		referer:    cfg.Referer,
		title:      cfg.Title,
	}
}

// Configured reports whether the provider key is present.
func (c *CompletionClient) Configured() bool {
	return c.apiKey != ""
}

type completionRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete forwards the system-prefixed history to the provider and returns
// the assistant text plus usage accounting.
func (c *CompletionClient) Complete(ctx context.Context, cfg ModelConfig, turns []Turn) (Completion, error) {
	if !c.Configured() {
		return Completion{}, ErrNotConfigured
	}

	payload := completionRequest{
		Model:       cfg.Model,
		Messages:    turns,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("call completion provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read completion response: %w", err)
	}

	var parsed completionResponse
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return Completion{}, &UpstreamError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Completion{}, fmt.Errorf("parse completion response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return Completion{}, &UpstreamError{StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return Completion{}, ErrNoResponse
	}

	model := parsed.Model
	if model == "" {
		model = cfg.Model
	}

	return Completion{
		Message: parsed.Choices[0].Message.Content,
		Model:   model,
		Usage:   parsed.Usage,
	}, nil
}

var _ Completer = (*CompletionClient)(nil)
