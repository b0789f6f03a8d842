package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts its expiry on the
// first hit of a window. It returns the count and the remaining TTL in ms.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter is a fixed-window Limiter shared by every API replica.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "stavros:rl"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, 0, errors.New("redis limiter: nil client")
	}
	if key == "" {
		key = "anonymous"
	}

	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, period.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis limiter: unexpected reply %v", res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count > int64(limit) {
		return false, ttl, nil
	}
	return true, 0, nil
}
