package nl2sql

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

func TestOpenAIClientCompleteSendsChatRequest(t *testing.T) {
	var got chatRequest
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"SELECT 1"}}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL + "/", APIKey: "secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	resp, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "system text",
		Model:        "google/gemini-2.0-flash-001",
		Temperature:  1,
		Messages:     []Message{{Sender: SenderUser, Content: "Convert this question to a SQL query: q"}},
		CallerID:     "system",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content == nil || *resp.Choices[0].Message.Content != "SELECT 1" {
		t.Fatalf("Complete() = %#v", resp)
	}

	if path != "/v1/chat/completions" {
		t.Fatalf("path = %q", path)
	}
	if auth != "Bearer secret" {
		t.Fatalf("Authorization = %q", auth)
	}
	if got.Model != "google/gemini-2.0-flash-001" || got.Temperature != 1 || got.User != "system" {
		t.Fatalf("request = %#v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != "system text" {
		t.Fatalf("messages = %#v", got.Messages)
	}
	if got.Messages[1].Role != "user" || !strings.HasSuffix(got.Messages[1].Content, ": q") {
		t.Fatalf("messages = %#v", got.Messages)
	}
}

func TestOpenAIClientCompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusBadGateway, `upstream down`, ErrServiceUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, ErrServiceUnavailable},
		{"bad json", http.StatusOK, `not json`, ErrServiceUnavailable},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyCompletion},
		{"null content", http.StatusOK, `{"choices":[{"message":{"content":null}}]}`, ErrEmptyCompletion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "secret"})
			if err != nil {
				t.Fatalf("NewOpenAIClient() error = %v", err)
			}
			_, err = client.Complete(context.Background(), CompletionRequest{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("Complete() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestOpenAIClientCompleteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: baseURL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	_, err = client.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("Complete() error = %v", err)
	}
}

func TestNewOpenAIClientValidatesConfig(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected missing base URL error")
	}
	if _, err := NewOpenAIClient(OpenAIConfig{BaseURL: "https://router.example.com"}); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestBuildChatRequestMapsSenders(t *testing.T) {
	req := buildChatRequest(CompletionRequest{
		Messages: []Message{
			{Sender: SenderUser, Content: "a"},
			{Sender: SenderAssistant, Content: "b"},
		},
	})
	if len(req.Messages) != 2 || req.Messages[0].Role != "user" || req.Messages[1].Role != "assistant" {
		t.Fatalf("messages = %#v", req.Messages)
	}
}
