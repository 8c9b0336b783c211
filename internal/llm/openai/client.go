// Package openai implements llm.Provider on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/linnemanlabs/hermes/internal/llm"
)

// Client calls the OpenAI chat completions endpoint.
type Client struct {
	client openai.Client
	model  string
}

// New creates a new OpenAI client for the given API key and model. The
// SDK's built-in retry is disabled; throttling retries are governed by the
// caller's backoff policy.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete sends one system+user exchange and returns the completion text.
// HTTP 429 responses are surfaced as llm.ThrottledError with any wait hint
// parsed from the error message.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			retryAfter, _ := llm.ParseRetryAfter(apierr.Error())
			return "", &llm.ThrottledError{RetryAfter: retryAfter, Detail: apierr.Error()}
		}
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
