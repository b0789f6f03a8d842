package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter_FixedWindow(t *testing.T) {
	l := NewLocalLimiter()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "ip", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	now = now.Add(20 * time.Second)
	ok, retry, err := l.Allow(ctx, "ip", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retry)

	// other keys have their own window
	ok, _, _ = l.Allow(ctx, "other", 3, time.Minute)
	assert.True(t, ok)

	now = now.Add(40 * time.Second)
	ok, _, _ = l.Allow(ctx, "ip", 3, time.Minute)
	assert.True(t, ok, "window should have reset")
}

func TestLocalLimiter_SweepsStaleWindows(t *testing.T) {
	l := NewLocalLimiter()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _, _ = l.Allow(context.Background(), "a", 1, time.Minute)
	_, _, _ = l.Allow(context.Background(), "b", 1, time.Minute)
	require.Len(t, l.windows, 2)

	now = now.Add(2 * time.Minute)
	_, _, _ = l.Allow(context.Background(), "c", 1, time.Minute)
	assert.Len(t, l.windows, 1)
	assert.Contains(t, l.windows, "c")
}
