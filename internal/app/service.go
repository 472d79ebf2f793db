// Package service wires the team store, plan cache, idempotency tracker,
// re-solve queue and workers around the solver engine, and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/adapters/mq/queue"
	"github.com/okian/lootsolver/internal/adapters/mq/worker"
	"github.com/okian/lootsolver/internal/adapters/repository"
	"github.com/okian/lootsolver/internal/domain/dedupe"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
	"github.com/okian/lootsolver/pkg/metrics"
)

// Solve modes, used as cache key part and metric label.
const (
	ModeStandard     = "standard"
	ModeConservative = "conservative"
)

const stopTimeout = 10 * time.Second

// Service implements the API dependencies of the loot solver.
type Service struct {
	mu sync.RWMutex

	engine  *solver.Engine
	store   *repository.MemoryStore
	cache   repository.PlanCache
	deduper dedupe.Deduper
	queue   queue.Queue
	pool    *worker.Pool

	workerCount      int
	queueSize        int
	dedupeSize       int
	shardCount       int
	solveConcurrency int
	maxBatchSize     int
	solverOpts       []solver.Option

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        1024,
		dedupeSize:       10_000,
		shardCount:       16,
		solveConcurrency: runtime.NumCPU(),
		maxBatchSize:     64,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = solver.New(s.solverOpts...)
	if s.cache == nil {
		s.cache = repository.NewMemoryPlanCache()
	}
	return s
}

// Engine returns the solver the service runs on.
func (s *Service) Engine() *solver.Engine { return s.engine }

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting loot solver service...")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.store = repository.NewMemoryStore(runCtx, repository.WithShardCount(s.shardCount))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, s, worker.WithPoolLogger(s.logger))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "loot solver service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("cache", s.cache.Backend()),
		logger.Bool("conservative", s.engine.Conservative()),
	)
	return nil
}

// Stop gracefully shuts down the service. Queued re-solves that did not run
// are dropped; plans are computed on demand instead.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping loot solver service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
	}
	s.cancel()
	_ = s.store.Close()
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "closing plan cache", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "loot solver service stopped")
}

// running returns the started components or ErrNotStarted.
func (s *Service) running() (*repository.MemoryStore, queue.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.queue, nil
}

// enqueue asks the workers to re-solve a team. A full queue is not an error
// for the caller: the plan is then computed on the next read.
func (s *Service) enqueue(ctx context.Context, q queue.Queue, id uuid.UUID, version uint64, reason string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		metrics.RecordCacheError(s.cache.Backend())
		s.logger.Warn(ctx, "plan cache invalidation failed", logger.String("team", id.String()), logger.Error(err))
	}
	err := q.Enqueue(ctx, queue.Request{TeamID: id, Version: version, Reason: reason, Enqueued: time.Now()})
	if err != nil {
		s.logger.Warn(ctx, "re-solve not queued",
			logger.String("team", id.String()),
			logger.Uint64("version", version),
			logger.Error(err),
		)
		return
	}
	metrics.UpdateQueueSize(q.Len(ctx))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"solveConcurrency": s.solveConcurrency,
		"maxBatchSize":     s.maxBatchSize,
		"cacheBackend":     s.cache.Backend(),
		"conservative":     s.engine.Conservative(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		teams := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalTeams"] = teams
		stats["idempotencyKeys"] = s.deduper.Size()
		stats["plansPrecomputed"] = s.pool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTeamsTotal(teams)
	}
	return stats
}
