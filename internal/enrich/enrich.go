// Package enrich turns raw feed entries into structured change analyses by
// calling an LLM provider with a strict JSON output contract. Analyze never
// fails: any unrecoverable provider or parse error yields a degraded Result
// flagged for manual review, so one bad entry cannot sink a run.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/hermes/internal/backoff"
	"github.com/linnemanlabs/hermes/internal/feed"
	"github.com/linnemanlabs/hermes/internal/llm"
)

const (
	// DefaultTruncateLimit bounds each prompt field in runes.
	DefaultTruncateLimit = 4000

	truncationMarker = " [truncated]"
)

// Result is the structured analysis of a single feed entry.
type Result struct {
	Summary   string   `json:"summary"`
	Deadline  string   `json:"deadline"`
	Impact    string   `json:"impact"`
	Actions   []string `json:"actions"`
	Important bool     `json:"is_important"`
	Reasoning string   `json:"reasoning,omitempty"`

	// Empty marks the provider's explicit "{}" response: the entry is not
	// relevant to any tracked tech stack.
	Empty bool `json:"-"`

	// NeedsReview marks a degraded result produced after provider or parse
	// failure. Degraded rows still surface in reports.
	NeedsReview bool `json:"-"`
}

// Client issues analysis calls against an llm.Provider.
type Client struct {
	provider   llm.Provider
	techStacks []string
	limit      int
	retry      backoff.Policy
	logger     log.Logger
}

// New creates an enrichment client. limit <= 0 falls back to
// DefaultTruncateLimit.
func New(provider llm.Provider, techStacks []string, limit int, retry backoff.Policy, logger log.Logger) *Client {
	if limit <= 0 {
		limit = DefaultTruncateLimit
	}
	return &Client{
		provider:   provider,
		techStacks: techStacks,
		limit:      limit,
		retry:      retry,
		logger:     logger,
	}
}

// Analyze runs the entry through the provider and returns its structured
// analysis. Throttling retries per the client's backoff policy; malformed
// output is re-requested once; everything else degrades.
func (c *Client) Analyze(ctx context.Context, e feed.Entry) Result {
	L := c.logger.With("entry", e.Title)

	raw, err := c.complete(ctx, e)
	if err != nil {
		L.Error(ctx, err, "analysis call failed")
		return degraded(fmt.Sprintf("Analysis failed: %v", err))
	}

	res, perr := parseResult(raw)
	if perr != nil {
		L.Warn(ctx, "analysis response malformed, re-requesting", "error", perr.Error())
		raw, err = c.complete(ctx, e)
		if err != nil {
			L.Error(ctx, err, "analysis retry failed")
			return degraded(fmt.Sprintf("Analysis failed: %v", err))
		}
		res, perr = parseResult(raw)
		if perr != nil {
			L.Error(ctx, perr, "analysis response malformed after retry")
			return degraded("Analysis returned malformed output")
		}
	}
	return res
}

// complete issues the provider call under the retry policy. Only throttling
// errors retry; network and auth failures return immediately.
func (c *Client) complete(ctx context.Context, e feed.Entry) (string, error) {
	system := buildSystemPrompt(c.techStacks)
	user := buildUserPrompt(e, c.limit)

	var out string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.provider.Complete(ctx, system, user)
		return err
	}, func(err error) (time.Duration, bool) {
		te, ok := llm.AsThrottled(err)
		if !ok {
			return 0, false
		}
		c.logger.Warn(ctx, "provider throttled, backing off",
			"retry_after", te.RetryAfter.String(),
			"detail", te.Detail,
		)
		return te.RetryAfter, true
	})
	return out, err
}

// degraded is the placeholder result for entries whose analysis could not be
// completed. The fixed action string is what reports show operators.
func degraded(summary string) Result {
	return Result{
		Summary:     summary,
		Deadline:    "No deadline",
		Impact:      "Unknown",
		Actions:     []string{"Please review manually"},
		NeedsReview: true,
	}
}

// parseResult decodes the provider response. An empty JSON object means the
// entry is not relevant; anything that is not a JSON object is malformed.
func parseResult(raw string) (Result, error) {
	body := extractJSON(raw)
	if body == "" {
		return Result{}, fmt.Errorf("no JSON object in response")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		return Result{}, fmt.Errorf("decode analysis: %w", err)
	}
	if len(probe) == 0 {
		return Result{Empty: true}, nil
	}

	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return Result{}, fmt.Errorf("decode analysis: %w", err)
	}
	return res, nil
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} span or "" when none exists.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}

func buildSystemPrompt(techStacks []string) string {
	return fmt.Sprintf(`You are Hermes, a release-notes analyst. You read RSS feed entries and flag breaking changes and deprecations.

Relevant tech stacks are: %s

Respond with a single JSON object and nothing else:
{
  "summary": "one-paragraph summary of the change",
  "deadline": "YYYY-MM-DD or the literal string \"No deadline\"",
  "impact": "what breaks and for whom",
  "actions": ["ordered remediation steps"],
  "is_important": true or false,
  "reasoning": "why this matters (optional)"
}

If the entry is not relevant to the tech stacks above, respond with exactly {}.`,
		strings.Join(techStacks, ", "))
}

func buildUserPrompt(e feed.Entry, limit int) string {
	return fmt.Sprintf("Title: %s\nLink: %s\nPublished: %s\nSummary: %s\nContent: %s",
		Truncate(e.Title, limit),
		e.Link,
		e.Published,
		Truncate(e.Summary, limit),
		Truncate(e.Content, limit),
	)
}

// Truncate bounds s to limit runes, cutting at the last sentence terminator
// within the budget when one exists and appending a marker. Content at or
// under the limit passes through unchanged.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	head := runes[:limit]
	cut := -1
	for i := len(head) - 1; i >= 0; i-- {
		switch head[i] {
		case '.', '!', '?':
			cut = i + 1
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		cut = limit
	}
	return string(head[:cut]) + truncationMarker
}
