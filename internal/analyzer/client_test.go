package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Anthropic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System != "sys" || req.Messages[0].Content != "hello" || req.MaxTokens != 100 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"[{\"subject\":"},{"type":"text","text":"\"X\"}]"}]}`))
	}))
	defer server.Close()

	c, err := New("claude", ProviderAnthropic, "m", "k",
		WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithMaxTokens(100))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Invoke(context.Background(), "sys", "hello")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != `[{"subject":"X"}]` {
		t.Errorf("Invoke = %q", got)
	}
}

func TestClient_OpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer k" {
			http.NotFound(w, r)
			return
		}
		var req openAIRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	c, _ := New("gpt", ProviderOpenAI, "m", "k", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	got, err := c.Invoke(context.Background(), "sys", "hi")
	if err != nil || got != "ok" {
		t.Fatalf("Invoke = %q, %v", got, err)
	}
}

func TestClient_Gemini(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gem-pro:generateContent") || r.Header.Get("x-goog-api-key") != "k" {
			http.NotFound(w, r)
			return
		}
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "sys" {
			t.Errorf("system instruction missing: %+v", req)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`))
	}))
	defer server.Close()

	c, _ := New("gemini", ProviderGemini, "gem-pro", "k", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	got, err := c.Invoke(context.Background(), "sys", "hi")
	if err != nil || got != "ab" {
		t.Fatalf("Invoke = %q, %v", got, err)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	c, _ := New("claude", ProviderAnthropic, "m", "k", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := c.Invoke(context.Background(), "", "x")
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "slow down" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c, _ := New("gpt", ProviderOpenAI, "m", "k", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if _, err := c.Invoke(context.Background(), "", "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", ProviderOpenAI, "m", ""); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := New("x", ProviderOpenAI, "", ""); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := New("x", Provider("carrier-pigeon"), "m", ""); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNew_TimeoutDoesNotLeakIntoSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}
	fast, err := New("fast", ProviderOpenAI, "m", "k", WithHTTPClient(shared), WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	slow, err := New("slow", ProviderAnthropic, "m", "k", WithHTTPClient(shared), WithTimeout(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := New("plain", ProviderGemini, "m", "k", WithHTTPClient(shared))
	if err != nil {
		t.Fatal(err)
	}

	if shared.Timeout != 5*time.Second {
		t.Errorf("shared client timeout changed to %s", shared.Timeout)
	}
	if fast.httpClient.Timeout != time.Second || slow.httpClient.Timeout != time.Minute {
		t.Errorf("timeouts = %s/%s, want 1s/1m", fast.httpClient.Timeout, slow.httpClient.Timeout)
	}
	if plain.httpClient.Timeout != 5*time.Second {
		t.Errorf("client without WithTimeout = %s, want shared 5s", plain.httpClient.Timeout)
	}
}

func TestStatic(t *testing.T) {
	s := Static{ID: "fixture", Response: "[]"}
	got, err := s.Invoke(context.Background(), "", "")
	if err != nil || got != "[]" {
		t.Fatalf("Invoke = %q, %v", got, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Invoke(ctx, "", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
