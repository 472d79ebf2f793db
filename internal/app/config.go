package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/lootsolver/internal/adapters/repository"
	"github.com/okian/lootsolver/internal/config"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
)

const redisPingTimeout = 2 * time.Second

// SolverOptions translates the solver settings of cfg.
func SolverOptions(cfg *config.Config) ([]solver.Option, error) {
	const op = "service.solver_options"

	order, ok := solver.ParseCategoryOrder(cfg.CategoryOrder)
	if !ok {
		return nil, wrap(op, config.ErrInvalidConfig)
	}
	opts := []solver.Option{
		solver.WithConservative(cfg.Conservative),
		solver.WithCategoryOrder(order),
	}
	for stage, rate := range cfg.TokenRates {
		opts = append(opts, solver.WithTokenRate(stage, rate))
	}
	return opts, nil
}

// OptionsFromConfig translates cfg into service options. With the redis
// cache backend a client is created and pinged; an unreachable server is
// logged and the cache degrades to recomputing plans.
func OptionsFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) ([]Option, error) {
	solverOpts, err := SolverOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithLogger(log),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithShardCount(cfg.ShardCount),
		WithSolveConcurrency(cfg.SolveConcurrency),
		WithMaxBatchSize(cfg.MaxBatchSize),
		WithSolverOptions(solverOpts...),
	}

	if cfg.CacheBackend == repository.BackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		cache := repository.NewRedisPlanCache(client,
			repository.WithPrefix(cfg.RedisPrefix),
			repository.WithTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
		)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn(ctx, "redis plan cache unreachable",
				logger.String("addr", cfg.RedisAddr),
				logger.Error(err))
		}
		opts = append(opts, WithPlanCache(cache))
	}
	return opts, nil
}
