package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "lootsolver:"
	scanBatch          = 100
)

// RedisPlanCache shares plans between service replicas through Redis.
// Keys look like <prefix>plan:<team>:<version>:<mode>.
type RedisPlanCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ PlanCache = (*RedisPlanCache)(nil)

// NewRedisPlanCache wraps an existing client.
func NewRedisPlanCache(client *redis.Client, opts ...RedisOption) *RedisPlanCache {
	c := &RedisPlanCache{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisPlanCache) key(k PlanKey) string {
	return c.prefix + "plan:" + k.String()
}

// Get implements PlanCache.
func (c *RedisPlanCache) Get(ctx context.Context, key PlanKey) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

// Set implements PlanCache.
func (c *RedisPlanCache) Set(ctx context.Context, key PlanKey, plan []byte) error {
	if err := c.client.Set(ctx, c.key(key), plan, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate implements PlanCache by scanning the team's keys and deleting
// them in one pipeline.
func (c *RedisPlanCache) Invalidate(ctx context.Context, teamID uuid.UUID) error {
	pattern := c.prefix + "plan:" + teamID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis del %s: %w", pattern, err)
	}
	return nil
}

// Backend implements PlanCache.
func (c *RedisPlanCache) Backend() string { return BackendRedis }

// Ping checks the connection.
func (c *RedisPlanCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisPlanCache) Close() error {
	return c.client.Close()
}
