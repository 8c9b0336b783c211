package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linnemanlabs/hermes/internal/llm"
)

func TestComplete_ReturnsTextBlock(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["system"] != "sys prompt" {
			t.Errorf("system = %v", req["system"])
		}
		if req["model"] != "claude-sonnet-4-20250514" {
			t.Errorf("model = %v", req["model"])
		}

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"summary\":\"ok\"}"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := New("sk-test", "claude-sonnet-4-20250514", WithBaseURL(srv.URL))
	got, err := c.Complete(context.Background(), "sys prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"summary":"ok"}` {
		t.Errorf("text = %q", got)
	}
}

func TestComplete_ThrottledWithHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("retry-after", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := New("sk-test", "claude-sonnet-4-20250514", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "s", "u")

	te, ok := llm.AsThrottled(err)
	if !ok {
		t.Fatalf("expected ThrottledError, got %v", err)
	}
	if te.RetryAfter != 12*time.Second {
		t.Errorf("RetryAfter = %v, want 12s", te.RetryAfter)
	}
}

func TestComplete_ThrottledWithBodyHint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited, please try again in 7s`))
	}))
	defer srv.Close()

	c := New("sk-test", "claude-sonnet-4-20250514", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "s", "u")

	te, ok := llm.AsThrottled(err)
	if !ok {
		t.Fatalf("expected ThrottledError, got %v", err)
	}
	if te.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", te.RetryAfter)
	}
}

func TestComplete_ServerErrorIsNotThrottled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("sk-test", "claude-sonnet-4-20250514", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if _, ok := llm.AsThrottled(err); ok {
		t.Error("HTTP 500 must not classify as throttled")
	}
}
