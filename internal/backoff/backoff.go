// Package backoff provides a small bounded retry policy for throttled
// external calls. The delay between attempts comes from the error itself
// when the provider supplied a hint, otherwise from a fixed fallback.
package backoff

import (
	"context"
	"time"
)

// RetryAfterFunc classifies an error: it returns the wait before the next
// attempt and true when the error is retryable, or false to stop retrying.
// A zero duration with ok=true falls back to Policy.DefaultDelay.
type RetryAfterFunc func(error) (time.Duration, bool)

// Policy bounds retries of a throttle-prone call.
type Policy struct {
	// MaxAttempts is the total number of calls allowed, including the first.
	MaxAttempts int

	// DefaultDelay is used when a retryable error carries no wait hint.
	DefaultDelay time.Duration

	// Sleep is injectable for tests; nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration)
}

// Do runs fn up to MaxAttempts times. Non-retryable errors (per retryAfter)
// return immediately; retryable errors sleep and try again. The last error
// is returned once attempts are exhausted.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, retryAfter RetryAfterFunc) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		delay, retryable := retryAfter(err)
		if !retryable || attempt == attempts {
			return err
		}
		if delay <= 0 {
			delay = p.DefaultDelay
		}
		sleep(ctx, delay)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
