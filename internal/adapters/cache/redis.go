// Package cache holds the Redis-backed read cache and rate limiter. Both degrade to "no cache" /
// "no limit" when Redis is unreachable; neither is consulted when granting seats.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotbooking/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Connect returns a client for addr, or nil when the server does not answer a ping within two
// seconds. Callers treat nil as "Redis disabled".
func Connect(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// kv is the subset of redis.Cmdable the schedule cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ScheduleCache stores rendered event schedules as JSON under "<prefix>:schedule:<eventID>".
type ScheduleCache struct {
	rdb    kv
	prefix string
	ttl    time.Duration
}

var _ domain.ScheduleCache = (*ScheduleCache)(nil)

func NewScheduleCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *ScheduleCache {
	if prefix == "" {
		prefix = "slotbooking"
	}
	return &ScheduleCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *ScheduleCache) key(eventID string) string {
	return fmt.Sprintf("%s:schedule:%s", c.prefix, eventID)
}

func (c *ScheduleCache) Get(ctx context.Context, eventID string) ([]domain.ScheduleEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var entries []domain.ScheduleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached schedule: %w", err)
	}
	return entries, true, nil
}

func (c *ScheduleCache) Set(ctx context.Context, eventID string, entries []domain.ScheduleEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(eventID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *ScheduleCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.rdb.Del(ctx, c.key(eventID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
