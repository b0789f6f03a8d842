package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiterForTest(t *testing.T) (*miniredis.Miniredis, *RedisLimiter) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisLimiter(client, "rl_test")
}

func TestRedisLimiter_AllowThenDeny(t *testing.T) {
	m, l := newRedisLimiterForTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := l.Allow(ctx, "10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	assert.Equal(t, "3", mustGet(t, m, "rl_test:10.0.0.1"))

	m.FastForward(time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_EmptyKeyUsesFallback(t *testing.T) {
	m, l := newRedisLimiterForTest(t)

	ok, _, err := l.Allow(context.Background(), "", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.Exists("rl_test:anonymous"))
}

func TestRedisLimiter_Errors(t *testing.T) {
	_, _, err := NewRedisLimiter(nil, "").Allow(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)

	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	m.Close()

	_, _, err = NewRedisLimiter(client, "").Allow(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)
}

func mustGet(t *testing.T, m *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := m.Get(key)
	require.NoError(t, err)
	return v
}
