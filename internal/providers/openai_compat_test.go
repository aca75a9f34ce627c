package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"id": "call_1", "type": "function",
						"function": {"name": "add", "arguments": "{\"a\":2,\"b\":3}"}}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "test-key", srv.URL, "gpt-test")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "add 2 and 3"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.Name != "add" || tc.Arguments["a"] != float64(2) {
		t.Errorf("tool call = %+v", tc)
	}
	if resp.Usage.PromptTokens != 12 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOpenAIProvider_ChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"choices":[{"delta":{"content":"The sum "}}]}`,
			`{"choices":[{"delta":{"content":"is 5"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, e := range events {
			w.Write([]byte("data: " + e + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "", srv.URL, "gpt-test")
	acc := NewAccumulator(p.Name())
	var sawDone bool
	err := p.ChatStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, func(c StreamChunk) {
		if c.Done {
			sawDone = true
		}
		acc.Add(c)
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if !sawDone {
		t.Error("stream never signalled Done")
	}

	resp, err := acc.Response()
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	if resp.Content != "The sum is 5" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("openai", "", srv.URL, "gpt-test")
	_, err := p.Chat(context.Background(), ChatRequest{})

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if pe.Status != http.StatusTooManyRequests || pe.Code != "rate_limit_exceeded" {
		t.Errorf("error = %+v", pe)
	}
	if !pe.Retryable() {
		t.Error("429 must be retryable")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should see through wrapping")
	}
}
