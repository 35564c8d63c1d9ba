package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nattawut-dev/dropgate/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

// RedisTracker keeps per-event presence in a Redis sorted set scored by
// heartbeat time. Expired members are pruned lazily on read.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{client: client, ttl: ttl}
}

func presenceKey(eventID int64) string {
	return fmt.Sprintf("presence:event:%d", eventID)
}

func (t *RedisTracker) Touch(ctx context.Context, eventID int64, claimantID string) error {
	rdb := t.client.Client()
	key := presenceKey(eventID)

	pipe := rdb.Pipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(time.Now().UnixMilli()), Member: claimantID})
	// The whole set expires with the last heartbeat, so abandoned events
	// clean themselves up.
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}
	return nil
}

func (t *RedisTracker) Leave(ctx context.Context, eventID int64, claimantID string) error {
	if err := t.client.Client().ZRem(ctx, presenceKey(eventID), claimantID).Err(); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}
	return nil
}

func (t *RedisTracker) Attempting(ctx context.Context, eventID int64) ([]string, error) {
	key := presenceKey(eventID)
	if err := t.prune(ctx, key); err != nil {
		return nil, err
	}
	members, err := t.client.Client().ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	return members, nil
}

func (t *RedisTracker) Count(ctx context.Context, eventID int64) (int64, error) {
	key := presenceKey(eventID)
	if err := t.prune(ctx, key); err != nil {
		return 0, err
	}
	n, err := t.client.Client().ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count presence: %w", err)
	}
	return n, nil
}

func (t *RedisTracker) Close() error {
	return nil
}

func (t *RedisTracker) prune(ctx context.Context, key string) error {
	cutoff := time.Now().Add(-t.ttl).UnixMilli()
	err := t.client.Client().ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to prune presence: %w", err)
	}
	return nil
}
