package store

import (
	"context"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
)

// RetryPolicy bounds repeated attempts against the backing index.
type RetryPolicy struct {
	// Attempts is the maximum number of tries per backend call.
	Attempts int

	// Timeout applies to each individual attempt.
	Timeout time.Duration

	// Backoff paces the pauses between attempts.
	Backoff gax.Backoff
}

// DefaultRetryPolicy allows up to 10 attempts with a 60 second per-call
// timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 10,
		Timeout:  60 * time.Second,
		Backoff: gax.Backoff{
			Initial:    100 * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2,
		},
	}
}

// withRetry runs fn under the index's retry policy. A caller-side
// cancellation stops before the next attempt; attempts already issued are
// never compensated.
func (s *Index) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	bo := s.retry.Backoff
	var lastErr error
	tried := 0
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, s.retry.Timeout)
		err := fn(callCtx)
		cancel()
		tried++
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == s.retry.Attempts {
			break
		}
		if err := gax.Sleep(ctx, bo.Pause()); err != nil {
			break
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrBackend, op, tried, lastErr)
}
