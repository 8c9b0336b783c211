package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v2/option"

	"github.com/linnemanlabs/hermes/internal/llm"
)

func newTestClient(srv *httptest.Server) *Client {
	return New("sk-test", "gpt-4o", option.WithBaseURL(srv.URL))
}

func TestCompleteReturnsText(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"summary\":\"ok\"}"}}]
		}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv).Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"summary":"ok"}` {
		t.Errorf("out = %q", out)
	}

	if gotBody["model"] != "gpt-4o" {
		t.Errorf("model = %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system prompt" {
		t.Errorf("first message = %v", first)
	}
}

func TestCompleteThrottledWithHint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached. Please try again in 20s.", "type": "requests"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Complete(context.Background(), "s", "u")
	te, ok := llm.AsThrottled(err)
	if !ok {
		t.Fatalf("Complete = %v, want ThrottledError", err)
	}
	if te.RetryAfter != 20*time.Second {
		t.Errorf("RetryAfter = %v, want 20s", te.RetryAfter)
	}
}

func TestCompleteServerErrorNotThrottled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := llm.AsThrottled(err); ok {
		t.Error("500 must not be treated as throttling")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("empty choices should error")
	}
}
