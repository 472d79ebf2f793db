// Package worker runs the background re-solve loop: it drains solve requests
// from the queue and precomputes the plan of every team whose loot history
// changed, so reads hit a warm cache.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/adapters/mq/queue"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/pkg/logger"
	"github.com/okian/lootsolver/pkg/metrics"
)

const (
	defaultMetricsInterval = 5 * time.Second
	workerShutdownTimeout  = 5 * time.Second
	poolShutdownTimeout    = 30 * time.Second
)

// ErrStale is returned by Process when a newer version of the team already
// exists; the request is dropped because a later request covers it.
var ErrStale = errors.New("stale solve request")

// Request is the unit of work workers read off the queue.
type Request = queue.Request

// Snapshots loads the current state of a team.
type Snapshots interface {
	Snapshot(ctx context.Context, id uuid.UUID) (model.Snapshot, error)
}

// Planner computes and caches the plan of a snapshot.
type Planner interface {
	Precompute(ctx context.Context, snap model.Snapshot) error
}

// Source defines how workers receive requests.
type Source interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker processes solve requests until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker once its current request is done.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of a Source.
type InMemoryWorker struct {
	source    Source
	snapshots Snapshots
	planner   Planner
	name      string

	processed *atomic.Int64
	active    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from source.
func NewInMemoryWorker(source Source, snapshots Snapshots, planner Planner, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:    source,
		snapshots: snapshots,
		planner:   planner,
		name:      "worker",
		processed: &atomic.Int64{},
		active:    &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Current()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			err := w.Process(ctx, req)
			switch {
			case err == nil:
			case errors.Is(err, ErrStale):
				w.logger.Debug(ctx, "skipped stale solve request",
					logger.String("team", req.TeamID.String()),
					logger.Uint64("version", req.Version),
				)
			default:
				w.logger.Error(ctx, "re-solve failed",
					logger.String("team", req.TeamID.String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of plans this worker precomputed.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// Process handles a single request.
func (w *InMemoryWorker) Process(ctx context.Context, req Request) error { //nolint:gocritic // Request travels by value over the queue
	start := time.Now()
	if !req.Enqueued.IsZero() {
		metrics.RecordQueueProcessingLatency(float64(start.Sub(req.Enqueued).Milliseconds()))
	}
	w.active.Add(1)
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	snap, err := w.snapshots.Snapshot(ctx, req.TeamID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "snapshot_error")
		return fmt.Errorf("load team %s: %w", req.TeamID, err)
	}
	if snap.Version > req.Version {
		return ErrStale
	}
	if err := w.planner.Precompute(ctx, snap); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "solve_error")
		return fmt.Errorf("precompute team %s: %w", req.TeamID, err)
	}
	w.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source

	processed *atomic.Int64
	active    *atomic.Int64

	metricsInterval time.Duration
	shutdown        chan struct{}
	shutdownOnce    sync.Once

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers; a count below one defaults
// to the number of CPUs.
func NewPool(workerCount int, source Source, snapshots Snapshots, planner Planner, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		source:          source,
		processed:       &atomic.Int64{},
		active:          &atomic.Int64{},
		metricsInterval: defaultMetricsInterval,
		shutdown:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Current()
	}
	p.logger = p.logger.Named("worker-pool")

	for i := range p.workers {
		w := NewInMemoryWorker(source, snapshots, planner,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
		w.processed = p.processed
		w.active = p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the total number of plans precomputed by the pool.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	last := p.processed.Load()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			n := p.processed.Load()
			if secs := now.Sub(lastAt).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(n-last) / secs)
			}
			last, lastAt = n, now

			active := int(p.active.Load())
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

// Stop signals every worker and waits a bounded time for each.
func (p *Pool) Stop() {
	p.signal()
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the source if it can be closed, then waits for every worker
// until ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && !errors.Is(err, queue.ErrClosed) {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.signal()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}

func (p *Pool) signal() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
		for _, w := range p.workers {
			w.stop()
		}
	})
}
