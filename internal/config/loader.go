package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix  = "LOOTSOLVER_"
	EnvConfig  = EnvPrefix + "CONFIG"
	EnvEnvFile = EnvPrefix + "ENV_FILE"

	defaultEnvFile = ".env"
)

var (
	stages        = []string{"first_floor", "second_floor", "third_floor", "fourth_floor"}
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	orders        = []string{"declared", "fewest"}
	cacheBackends = []string{"memory", "redis"}
)

// Load builds a Config by layering defaults, a dotenv file, an optional YAML
// file and env vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file from LOOTSOLVER_ENV_FILE, or ./.env when present; it only
//     fills variables that are not already set
//  3. YAML file if LOOTSOLVER_CONFIG is set
//  4. env (prefix LOOTSOLVER_)
func Load(_ context.Context) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadErr(path, err)
		}
	}

	// LOOTSOLVER_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// koanf tags, so token_rates can only be set from the file.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadErr("env", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadErr("unmarshal", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return loadErr(path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case !slices.Contains(logLevels, strings.ToLower(c.LogLevel)):
		return invalid("log_level %q is not one of %v", c.LogLevel, logLevels)
	case !slices.Contains(logFormats, c.LogFormat):
		return invalid("log_format %q is not one of %v", c.LogFormat, logFormats)
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.DedupeSize < 0:
		return invalid("dedupe_size must not be negative, got %d", c.DedupeSize)
	case c.ShardCount < 1:
		return invalid("shard_count must be positive, got %d", c.ShardCount)
	case c.SolveConcurrency < 1:
		return invalid("solve_concurrency must be positive, got %d", c.SolveConcurrency)
	case c.MaxBatchSize < 1:
		return invalid("max_batch_size must be positive, got %d", c.MaxBatchSize)
	case !slices.Contains(orders, c.CategoryOrder):
		return invalid("category_order %q is not one of %v", c.CategoryOrder, orders)
	case !slices.Contains(cacheBackends, c.CacheBackend):
		return invalid("cache_backend %q is not one of %v", c.CacheBackend, cacheBackends)
	case c.CacheTTLSeconds < 0:
		return invalid("cache_ttl_seconds must not be negative, got %d", c.CacheTTLSeconds)
	case c.CacheBackend == "redis" && c.RedisAddr == "":
		return invalid("redis_addr is required for the redis cache")
	}
	for stage, rate := range c.TokenRates {
		if !slices.Contains(stages, stage) {
			return invalid("token_rates has unknown stage %q", stage)
		}
		if rate < 0 {
			return invalid("token_rates.%s must not be negative, got %d", stage, rate)
		}
	}
	return nil
}
