package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryIndex(attempts int) *Index {
	return &Index{retry: RetryPolicy{
		Attempts: attempts,
		Timeout:  time.Second,
		Backoff: gax.Backoff{
			Initial:    time.Millisecond,
			Max:        time.Millisecond,
			Multiplier: 1,
		},
	}}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	s := fastRetryIndex(3)

	calls := 0
	err := s.withRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversAfterFailures(t *testing.T) {
	s := fastRetryIndex(5)

	calls := 0
	err := s.withRetry(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	s := fastRetryIndex(3)

	calls := 0
	err := s.withRetry(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	s := fastRetryIndex(10)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := s.withRetry(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, 1, calls)
}

func TestWithRetryCancelledBeforeFirstAttempt(t *testing.T) {
	s := fastRetryIndex(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := s.withRetry(ctx, "op", func(context.Context) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Zero(t, calls)
}
