package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleep(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
}

func TestWithRetrySucceedsAfterRetryableFailures(t *testing.T) {
	var sleeps []time.Duration
	attempts := 0

	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &RetryableError{Err: errors.New("overloaded"), Retryable: true}
		}
		return nil
	}, RetryOptions{Sleep: recordingSleep(&sleeps)})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	attempts := 0
	inner := &UpstreamError{Status: 529, Message: "overloaded"}

	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: inner, Retryable: true}
	}, RetryOptions{Sleep: recordingSleep(&sleeps)})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, ErrMaxRetries)

	// The last failure stays reachable through the final error.
	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, 529, upstreamErr.Status)
}

func TestWithRetryNonRetryableReturnsImmediately(t *testing.T) {
	var sleeps []time.Duration
	attempts := 0
	fatal := &RetryableError{Err: errors.New("bad request"), Retryable: false}

	err := WithRetry(context.Background(), func() error {
		attempts++
		return fatal
	}, RetryOptions{Sleep: recordingSleep(&sleeps)})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, sleeps)
	assert.False(t, errors.Is(err, ErrMaxRetries))
}

func TestWithRetryPlainErrorReturnsImmediately(t *testing.T) {
	attempts := 0
	plain := errors.New("not wrapped")

	err := WithRetry(context.Background(), func() error {
		attempts++
		return plain
	}, RetryOptions{Sleep: recordingSleep(&[]time.Duration{})})

	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryDelayCapsAtMaxDelay(t *testing.T) {
	var sleeps []time.Duration

	err := WithRetry(context.Background(), func() error {
		return &RetryableError{Err: errors.New("overloaded"), Retryable: true}
	}, RetryOptions{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		MaxDelay:     4 * time.Second,
		Sleep:        recordingSleep(&sleeps),
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 4 * time.Second}, sleeps)
}

func TestWithRetrySleepErrorAborts(t *testing.T) {
	attempts := 0

	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: errors.New("overloaded"), Retryable: true}
	}, RetryOptions{
		Sleep: func(context.Context, time.Duration) error { return context.Canceled },
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
