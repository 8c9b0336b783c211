// Package llm defines the provider boundary for the external analysis call
// and the error taxonomy the enrichment client retries on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Provider is the interface for any analysis backend. Implementations live
// in the openai and claude subpackages.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ThrottledError signals the provider told us to slow down. RetryAfter is
// zero when the provider gave no usable hint.
type ThrottledError struct {
	RetryAfter time.Duration
	Detail     string
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled: %s", e.Detail)
}

// AsThrottled unwraps err into a ThrottledError if it is one.
func AsThrottled(err error) (*ThrottledError, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// retryAfterRe matches the wait hint providers embed in throttling messages,
// e.g. "Rate limit reached ... Please try again in 20s."
var retryAfterRe = regexp.MustCompile(`try again in (\d+(?:\.\d+)?)s`)

// ParseRetryAfter extracts a suggested wait duration from throttling error
// text. Returns false when no hint is present.
func ParseRetryAfter(text string) (time.Duration, bool) {
	m := retryAfterRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
