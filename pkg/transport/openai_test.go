package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faqchat/pkg/chat"
)

func TestOpenAITransport_Success(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected path /v1/chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, okBody)
	}))
	defer server.Close()

	tr, err := NewOpenAITransport(Options{BaseURL: server.URL + "/v1", APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAITransport() error: %v", err)
	}

	temp := 0.3
	history := []chat.ChatMessage{
		{ID: "1", Role: chat.RoleUser, Content: chat.Text("Q1")},
		{ID: "2", Role: chat.RoleAssistant, Content: chat.Text("A1")},
	}
	req := chat.NewBuilder("").WithParams(chat.Params{
		Temperature:    &temp,
		ResponseFormat: json.RawMessage(`{"type":"json_object"}`),
	}).Build("Q2", history)

	resp, err := tr.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if answer, ok := chat.ExtractAnswer(resp); !ok || answer != "Test response" {
		t.Fatalf("Expected 'Test response', got (%q, %v)", answer, ok)
	}

	if payload["model"] != "faq-chat" {
		t.Errorf("Expected model faq-chat, got %v", payload["model"])
	}
	if payload["temperature"] != 0.3 {
		t.Errorf("Expected temperature 0.3, got %v", payload["temperature"])
	}
	rf, _ := payload["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("Expected response_format passthrough, got %v", payload["response_format"])
	}
	messages, _ := payload["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	last := messages[2].(map[string]any)
	if last["role"] != "user" || last["content"] != "Q2" {
		t.Errorf("Unexpected last message: %v", last)
	}
}

func TestOpenAITransport_HTTPErrorBodyVerbatim(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "Internal Server Error")
	}))
	defer server.Close()

	tr, err := NewOpenAITransport(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAITransport() error: %v", err)
	}

	_, err = tr.Send(context.Background(), chat.BuildRequest("hi", nil))

	var httpErr *chat.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != 500 || httpErr.Body != "Internal Server Error" {
		t.Fatalf("Unexpected HTTPError: %+v", httpErr)
	}
	if calls != 1 {
		t.Fatalf("Expected exactly 1 attempt, got %d", calls)
	}
}

func TestOpenAITransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	tr, err := NewOpenAITransport(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewOpenAITransport() error: %v", err)
	}

	_, err = tr.Send(context.Background(), chat.BuildRequest("hi", nil))
	if !chat.IsTimeout(err) {
		t.Fatalf("Expected TimeoutError, got %T: %v", err, err)
	}
}

func TestOpenAITransport_NetworkError(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	})}

	tr, err := NewOpenAITransport(Options{BaseURL: "http://faq.test", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewOpenAITransport() error: %v", err)
	}

	_, err = tr.Send(context.Background(), chat.BuildRequest("hi", nil))

	var netErr *chat.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
}

func TestBuildCompletionParams(t *testing.T) {
	if _, err := buildCompletionParams(chat.ChatRequest{}); err == nil {
		t.Error("Expected error for empty messages")
	}

	_, err := buildCompletionParams(chat.ChatRequest{
		Messages: []chat.WireMessage{{Role: "tool", Content: "x"}},
	})
	if err == nil {
		t.Error("Expected error for unsupported role")
	}

	maxTokens := 32
	seed := int64(9)
	params, err := buildCompletionParams(chat.ChatRequest{
		Messages: []chat.WireMessage{{Role: chat.RoleUser, Content: "hi"}},
		Params:   chat.Params{MaxTokens: &maxTokens, Seed: &seed},
	})
	if err != nil {
		t.Fatalf("buildCompletionParams() error: %v", err)
	}
	if params.Model != chat.DefaultModel {
		t.Errorf("Expected default model, got %q", params.Model)
	}
	if params.MaxTokens.Value != 32 || params.Seed.Value != 9 {
		t.Errorf("Expected max_tokens 32 and seed 9, got %d and %d", params.MaxTokens.Value, params.Seed.Value)
	}
	if params.Temperature.Valid() {
		t.Error("Expected temperature to stay unset")
	}
}
