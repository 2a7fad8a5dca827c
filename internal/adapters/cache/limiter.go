package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket refills capacity tokens one per interval and takes one per call. State lives in a
// hash so concurrent API replicas share one bucket per key.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + intervals * interval_ms
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// TokenBucketLimiter runs the token bucket script against Redis.
type TokenBucketLimiter struct {
	rdb      redis.Scripter
	prefix   string
	capacity int
	interval time.Duration
	now      func() time.Time
}

func NewTokenBucketLimiter(rdb redis.Scripter, prefix string, capacity int, interval time.Duration) *TokenBucketLimiter {
	if prefix == "" {
		prefix = "slotbooking:rl"
	}
	return &TokenBucketLimiter{rdb: rdb, prefix: prefix, capacity: capacity, interval: interval, now: time.Now}
}

// Capacity is the bucket size reported in X-RateLimit-Limit.
func (l *TokenBucketLimiter) Capacity() int { return l.capacity }

func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := int64(l.interval*time.Duration(l.capacity)/time.Second) + 1
	vals, err := tokenBucket.Run(ctx, l.rdb, []string{l.prefix + ":" + key},
		l.now().UnixMilli(), l.capacity, l.interval.Milliseconds(), ttl).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}
	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
