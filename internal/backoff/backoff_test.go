package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

type retryableErr struct {
	wait time.Duration
}

func (e retryableErr) Error() string { return "throttled" }

func classify(err error) (time.Duration, bool) {
	var re retryableErr
	if errors.As(err, &re) {
		return re.wait, true
	}
	return 0, false
}

func TestDoSucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	p := Policy{MaxAttempts: 3, DefaultDelay: time.Second, Sleep: func(context.Context, time.Duration) {
		t.Fatal("sleep should not be called on success")
	}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, classify)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := Policy{MaxAttempts: 3, DefaultDelay: 30 * time.Second, Sleep: func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return retryableErr{wait: time.Duration(calls) * time.Second}
		}
		return nil
	}, classify)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("slept[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	p := Policy{MaxAttempts: 3, DefaultDelay: time.Second, Sleep: func(context.Context, time.Duration) {}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return retryableErr{wait: time.Second}
	}, classify)
	if err == nil {
		t.Fatal("Do should return the last error")
	}
	// MaxAttempts bounds total calls, not retries.
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	fatal := errors.New("bad request")
	calls := 0
	p := Policy{MaxAttempts: 5, DefaultDelay: time.Second, Sleep: func(context.Context, time.Duration) {
		t.Fatal("sleep should not be called for non-retryable errors")
	}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return fatal
	}, classify)
	if !errors.Is(err, fatal) {
		t.Fatalf("Do = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoDefaultDelayWhenNoHint(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := Policy{MaxAttempts: 2, DefaultDelay: 30 * time.Second, Sleep: func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}}

	calls := 0
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return retryableErr{} // no wait hint
	}, classify)
	if len(slept) != 1 || slept[0] != 30*time.Second {
		t.Fatalf("slept %v, want [30s]", slept)
	}
}

func TestDoZeroMaxAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	p := Policy{Sleep: func(context.Context, time.Duration) {}}
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return retryableErr{}
	}, classify)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
