// Package config defines service configuration and how it is loaded.
//
// Conventions:
//   - New() returns the defaults; Load(ctx) layers files and env on top.
//   - Keys use the koanf tag and are flat except token_rates.
//   - Every loaded Config is validated before it is returned.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory re-solve queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of re-solve workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of lock shards in the team store.
	ShardCount int `koanf:"shard_count"`

	// SolveConcurrency bounds parallel solves of one batch.
	SolveConcurrency int `koanf:"solve_concurrency"`

	// MaxBatchSize caps POST /solve/batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// Conservative is the default solve mode when a request does not pick one.
	Conservative bool `koanf:"conservative"`

	// CategoryOrder is the per-week category processing policy: declared or fewest.
	CategoryOrder string `koanf:"category_order"`

	// TokenRates maps stage names to their token week rate. Zero disables tokens.
	TokenRates map[string]int `koanf:"token_rates"`

	// CacheBackend selects where computed plans are cached: memory or redis.
	CacheBackend string `koanf:"cache_backend"`

	// CacheTTLSeconds bounds the lifetime of cached plans in Redis. Zero keeps them.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// RedisAddr, RedisDB and RedisPrefix configure the Redis plan cache.
	RedisAddr   string `koanf:"redis_addr"`
	RedisDB     int    `koanf:"redis_db"`
	RedisPrefix string `koanf:"redis_prefix"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        1024,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       10_000,
		ShardCount:       16,
		SolveConcurrency: runtime.NumCPU(),
		MaxBatchSize:     64,
		CategoryOrder:    "declared",
		TokenRates: map[string]int{
			"first_floor":  3,
			"second_floor": 4,
			"third_floor":  4,
		},
		CacheBackend:    "memory",
		CacheTTLSeconds: 3600,
		RedisAddr:       "localhost:6379",
		RedisPrefix:     "lootsolver:",
	}
}
