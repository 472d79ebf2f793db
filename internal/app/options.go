package service

import (
	"github.com/okian/lootsolver/internal/adapters/repository"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of re-solve workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the re-solve queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the lock shard count of the team store.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithSolveConcurrency bounds the parallel solves of one batch.
func WithSolveConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.solveConcurrency = n
		}
	}
}

// WithMaxBatchSize caps the number of snapshots one batch may hold.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithSolverOptions configures the engine every solve runs on.
func WithSolverOptions(opts ...solver.Option) Option {
	return func(s *Service) {
		s.solverOpts = append(s.solverOpts, opts...)
	}
}

// WithPlanCache replaces the in-memory plan cache, e.g. with Redis.
func WithPlanCache(c repository.PlanCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
