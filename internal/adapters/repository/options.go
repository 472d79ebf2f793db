package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithShardCount sets the number of lock shards teams are spread over.
func WithShardCount(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// RedisOption applies a configuration option to the RedisPlanCache.
type RedisOption func(*RedisPlanCache)

// WithPrefix sets the key prefix of every cached plan.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisPlanCache) {
		c.prefix = prefix
	}
}

// WithTTL sets how long cached plans live. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisPlanCache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}
