package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	p := DefaultBackoffPolicy()
	transient := errors.New("net timeout")

	assert.True(t, p.ShouldRetry(transient, 0))
	assert.True(t, p.ShouldRetry(transient, 2))
	assert.False(t, p.ShouldRetry(transient, 3), "budget exhausted")
	assert.False(t, p.ShouldRetry(nil, 0))
	assert.False(t, p.ShouldRetry(context.Canceled, 0))
	assert.False(t, p.ShouldRetry(context.DeadlineExceeded, 0))
}

func TestBackoffIsBoundedAndGrows(t *testing.T) {
	p := DefaultBackoffPolicy()

	for attempt := 0; attempt < 10; attempt++ {
		d := p.Backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, p.MaxDelay)
	}
	// The jitter floor of a later attempt exceeds the ceiling of the first.
	assert.Greater(t, p.Backoff(4), p.Backoff(0))
}

func TestWaitHonorsContext(t *testing.T) {
	p := BackoffPolicy{MaxRetries: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
