package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velvethub/backend/internal/tts"
)

type speechSynthStub struct {
	url   string
	err   error
	text  string
	voice string
	model string
}

func (s *speechSynthStub) Synthesize(ctx context.Context, text, voiceID, modelID string) (string, error) {
	s.text = text
	s.voice = voiceID
	s.model = modelID
	return s.url, s.err
}

func ttsRequestBody(t *testing.T, payload map[string]string) *http.Request {
	t.Helper()
	body, _ := json.Marshal(payload)
	return httptest.NewRequest(http.MethodPost, "/api/v1/tts", bytes.NewReader(body))
}

func TestTTSHandlerSuccess(t *testing.T) {
	speech := &speechSynthStub{url: "data:audio/mpeg;base64,AAAA"}
	handler := TTSHandler{Speech: speech, Limiter: &limiterStub{allow: true}}

	rec := httptest.NewRecorder()
	handler.Handle(rec, ttsRequestBody(t, map[string]string{
		"text":       "hola guapo",
		"voiceId":    "voice-1",
		"voiceModel": "eleven_turbo_v2_5",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if speech.text != "hola guapo" || speech.voice != "voice-1" || speech.model != "eleven_turbo_v2_5" {
		t.Errorf("synthesis request mismatch: %+v", speech)
	}

	var resp ttsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AudioURL != speech.url {
		t.Errorf("audio url: got %q", resp.AudioURL)
	}
}

func TestTTSHandlerValidation(t *testing.T) {
	handler := TTSHandler{Speech: &speechSynthStub{}}

	cases := map[string]map[string]string{
		"empty text":    {"text": "   ", "voiceId": "v"},
		"missing voice": {"text": "hola"},
		"too long":      {"text": string(bytes.Repeat([]byte("a"), maxSpeechTextLength+1)), "voiceId": "v"},
	}
	for name, payload := range cases {
		rec := httptest.NewRecorder()
		handler.Handle(rec, ttsRequestBody(t, payload))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d want %d", name, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestTTSHandlerRateLimited(t *testing.T) {
	speech := &speechSynthStub{url: "data:audio/mpeg;base64,AAAA"}
	handler := TTSHandler{Speech: speech, Limiter: &limiterStub{allow: false}}

	rec := httptest.NewRecorder()
	handler.Handle(rec, ttsRequestBody(t, map[string]string{"text": "hola", "voiceId": "v"}))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusTooManyRequests)
	}
	if speech.text != "" {
		t.Fatal("rate-limited request must not reach the provider")
	}
}

func TestTTSHandlerNotConfigured(t *testing.T) {
	handler := TTSHandler{Speech: &speechSynthStub{err: tts.ErrNotConfigured}}

	rec := httptest.NewRecorder()
	handler.Handle(rec, ttsRequestBody(t, map[string]string{"text": "hola", "voiceId": "v"}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestTTSHandlerProviderError(t *testing.T) {
	handler := TTSHandler{Speech: &speechSynthStub{err: &tts.ProviderError{StatusCode: 422, Body: "invalid voice"}}}

	rec := httptest.NewRecorder()
	handler.Handle(rec, ttsRequestBody(t, map[string]string{"text": "hola", "voiceId": "bad"}))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestTTSHandlerGenericFailure(t *testing.T) {
	handler := TTSHandler{Speech: &speechSynthStub{err: errors.New("timeout")}}

	rec := httptest.NewRecorder()
	handler.Handle(rec, ttsRequestBody(t, map[string]string{"text": "hola", "voiceId": "v"}))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusBadGateway)
	}
}
