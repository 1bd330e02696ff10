package utils

import (
	"context"
	"time"
)

// Backoff retries an operation with exponential delays between attempts.
type Backoff struct {
	base     time.Duration
	attempts int
}

// NewBackoff returns a Backoff making up to attempts tries, waiting base,
// 2*base, 4*base... between them.
func NewBackoff(base time.Duration, attempts int) Backoff {
	if attempts < 1 {
		attempts = 1
	}
	return Backoff{base: base, attempts: attempts}
}

// Do calls fn until it succeeds, attempts run out, or ctx is done while
// waiting. The final attempt's error is returned; a cancelled wait returns
// the context error.
func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	var err error
	for i := 0; i < b.attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == b.attempts-1 {
			break
		}
		t := time.NewTimer(time.Duration(1<<i) * b.base)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
