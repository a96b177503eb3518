package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velvethub/backend/internal/config"
)

func newTestCompletionClient(baseURL string) *CompletionClient {
	return NewCompletionClient(config.ChatConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Referer: "https://velvethub.example",
		Title:   "VelvetHub",
	})
}

func TestCompletionClientSuccess(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	var gotBody completionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "meta-llama/llama-3.1-8b-instruct:free",
			"choices": [{"message": {"role": "assistant", "content": "hola guapo"}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 11, "total_tokens": 53}
		}`))
	}))
	defer srv.Close()

	client := newTestCompletionClient(srv.URL)
	cfg := ModelConfig{Model: DefaultModel, Temperature: 0.8, MaxTokens: 500}
	turns := []Turn{
		{Role: RoleSystem, Content: "system prompt"},
		{Role: RoleUser, Content: "hola"},
	}

	completion, err := client.Complete(context.Background(), cfg, turns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completion.Message != "hola guapo" {
		t.Errorf("message: got %q", completion.Message)
	}
	if completion.Model != DefaultModel {
		t.Errorf("model: got %q", completion.Model)
	}
	if completion.Usage.TotalTokens != 53 {
		t.Errorf("usage: got %+v", completion.Usage)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header: got %q", gotAuth)
	}
	if gotReferer != "https://velvethub.example" || gotTitle != "VelvetHub" {
		t.Errorf("attribution headers: referer=%q title=%q", gotReferer, gotTitle)
	}
	if gotBody.Model != DefaultModel || gotBody.Temperature != 0.8 || gotBody.MaxTokens != 500 {
		t.Errorf("request body config mismatch: %+v", gotBody)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != RoleSystem {
		t.Errorf("request turns mismatch: %+v", gotBody.Messages)
	}
}

func TestCompletionClientProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "code": 429}}`))
	}))
	defer srv.Close()

	client := newTestCompletionClient(srv.URL)
	_, err := client.Complete(context.Background(), ModelConfig{Model: DefaultModel}, []Turn{{Role: RoleUser, Content: "hi"}})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status: got %d", upstream.StatusCode)
	}
	if upstream.Message != "rate limit exceeded" {
		t.Errorf("message: got %q", upstream.Message)
	}
}

func TestCompletionClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := newTestCompletionClient(srv.URL)
	_, err := client.Complete(context.Background(), ModelConfig{Model: DefaultModel}, []Turn{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got %v", err)
	}
}

func TestCompletionClientEmbeddedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"message": "model unavailable"}, "choices": []}`))
	}))
	defer srv.Close()

	client := newTestCompletionClient(srv.URL)
	_, err := client.Complete(context.Background(), ModelConfig{Model: DefaultModel}, []Turn{{Role: RoleUser, Content: "hi"}})

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Message != "model unavailable" {
		t.Errorf("message: got %q", upstream.Message)
	}
}

func TestCompletionClientNotConfigured(t *testing.T) {
	client := NewCompletionClient(config.ChatConfig{BaseURL: "http://localhost"})
	_, err := client.Complete(context.Background(), ModelConfig{Model: DefaultModel}, []Turn{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
