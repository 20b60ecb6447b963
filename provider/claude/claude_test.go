package claude

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/youssefsiam38/memorykeep"
	"github.com/youssefsiam38/memorykeep/provider"
)

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if captured != nil {
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, captured); err != nil {
				t.Errorf("invalid request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-20241022",
		"content": [{"type": "text", "text": "{\"important\": false}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 30, "output_tokens": 7}
	}`, &captured)

	client := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	m := New(client, DefaultSidecarModel)

	resp, err := m.Complete(context.Background(), &provider.Request{
		System: "core\n",
		Turns: []provider.Turn{
			{Role: provider.TurnUser, Text: "hi"},
			{Role: provider.TurnUser, Text: "again"},
			{Role: provider.TurnAssistant, Text: "hello"},
			{Role: provider.TurnUser, Text: "bye"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != `{"important": false}` || resp.InputTokens != 30 || resp.OutputTokens != 7 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if captured.Model != DefaultSidecarModel || captured.MaxTokens != DefaultMaxTokens {
		t.Errorf("unexpected model or max tokens: %+v", captured)
	}
	if len(captured.System) != 1 || captured.System[0].Text != "core\n" {
		t.Errorf("unexpected system: %+v", captured.System)
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 merged messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "user" || len(captured.Messages[0].Content) != 2 {
		t.Errorf("consecutive user turns not merged: %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "assistant" {
		t.Errorf("expected assistant message, got %s", captured.Messages[1].Role)
	}
}

func TestGenerateAfterMemoryKeepOpensWithUser(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{
		"id": "msg_03", "type": "message", "role": "assistant", "model": "m",
		"content": [{"type": "text", "text": "hello again"}], "stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 3}
	}`, &captured)

	client := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	r := provider.NewResponder(New(client, DefaultAuthorityModel))

	got, err := r.Generate(context.Background(), []memorykeep.Message{
		{Role: memorykeep.RoleSystem, Content: "[MEMORY_KEEP: s]"},
		{Role: memorykeep.RoleAssistant, Content: "noted"},
		{Role: memorykeep.RoleUser, Content: "what next"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "hello again" {
		t.Errorf("expected reply, got %q", got)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", captured.Messages)
	}
	if len(captured.System) != 1 || captured.System[0].Text != "[MEMORY_KEEP: s]\nassistant: noted\n" {
		t.Errorf("leading assistant turn not folded into system: %+v", captured.System)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, `{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`, nil)

	client := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := New(client, DefaultAuthorityModel).Complete(context.Background(), &provider.Request{
		Turns: []provider.Turn{{Role: provider.TurnUser, Text: "hi"}},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"id": "msg_02", "type": "message", "role": "assistant", "model": "m",
		"content": [], "stop_reason": "end_turn",
		"usage": {"input_tokens": 1, "output_tokens": 0}
	}`, nil)

	client := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := New(client, DefaultAuthorityModel).Complete(context.Background(), &provider.Request{
		Turns: []provider.Turn{{Role: provider.TurnUser, Text: "hi"}},
	})
	if err == nil {
		t.Fatal("expected an error for an empty response")
	}
}
