package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/lootsolver/internal/adapters/mq/queue"
	"github.com/okian/lootsolver/internal/adapters/mq/worker"
	"github.com/okian/lootsolver/internal/domain/model"
	logging "github.com/okian/lootsolver/pkg/logger"
)

type mockSource struct {
	requests chan queue.Request
	once     sync.Once
}

func newMockSource() *mockSource {
	return &mockSource{requests: make(chan queue.Request, 10)}
}

func (m *mockSource) Dequeue(context.Context) <-chan queue.Request { return m.requests }

func (m *mockSource) Close() error {
	m.once.Do(func() { close(m.requests) })
	return nil
}

func (m *mockSource) add(r queue.Request) { m.requests <- r } //nolint:gocritic // by value like the queue

type mockSnapshots struct {
	mu       sync.RWMutex
	versions map[uuid.UUID]uint64
	errs     map[uuid.UUID]error
}

func newMockSnapshots() *mockSnapshots {
	return &mockSnapshots{
		versions: make(map[uuid.UUID]uint64),
		errs:     make(map[uuid.UUID]error),
	}
}

func (m *mockSnapshots) Snapshot(_ context.Context, id uuid.UUID) (model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[id]; ok {
		return model.Snapshot{}, err
	}
	v, ok := m.versions[id]
	if !ok {
		return model.Snapshot{}, errors.New("not found")
	}
	return model.Snapshot{Team: model.Team{ID: id}, Version: v}, nil
}

func (m *mockSnapshots) set(id uuid.UUID, v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[id] = v
}

type mockPlanner struct {
	mu   sync.Mutex
	done map[uuid.UUID][]uint64
	err  error
}

func newMockPlanner() *mockPlanner {
	return &mockPlanner{done: make(map[uuid.UUID][]uint64)}
}

func (m *mockPlanner) Precompute(_ context.Context, snap model.Snapshot) error { //nolint:gocritic // mirrors the interface
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.done[snap.Team.ID] = append(m.done[snap.Team.ID], snap.Version)
	return nil
}

func (m *mockPlanner) versions(id uuid.UUID) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.done[id]...)
}

func (m *mockPlanner) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.done {
		n += len(v)
	}
	return n
}

func TestProcess(t *testing.T) {
	convey.Convey("Given a worker with a known team", t, func() {
		_ = logging.Init()

		source := newMockSource()
		snaps := newMockSnapshots()
		planner := newMockPlanner()
		team := uuid.New()
		snaps.set(team, 3)

		w := worker.NewInMemoryWorker(source, snaps, planner, worker.WithName("test-worker"))
		ctx := context.Background()

		convey.Convey("When the request matches the stored version", func() {
			err := w.Process(ctx, queue.Request{TeamID: team, Version: 3, Enqueued: time.Now()})

			convey.Convey("Then the plan is precomputed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(planner.versions(team), convey.ShouldResemble, []uint64{3})
				convey.So(w.Processed(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the team moved on since the request", func() {
			err := w.Process(ctx, queue.Request{TeamID: team, Version: 2})

			convey.Convey("Then the request is skipped as stale", func() {
				convey.So(errors.Is(err, worker.ErrStale), convey.ShouldBeTrue)
				convey.So(planner.versions(team), convey.ShouldBeEmpty)
				convey.So(w.Processed(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the team cannot be loaded", func() {
			err := w.Process(ctx, queue.Request{TeamID: uuid.New(), Version: 1})

			convey.Convey("Then the error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(planner.total(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the planner fails", func() {
			boom := errors.New("boom")
			planner.err = boom
			err := w.Process(ctx, queue.Request{TeamID: team, Version: 3})

			convey.Convey("Then the planner error is wrapped", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		_ = logging.Init()

		source := newMockSource()
		snaps := newMockSnapshots()
		planner := newMockPlanner()
		team := uuid.New()
		snaps.set(team, 1)

		w := worker.NewInMemoryWorker(source, snaps, planner)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a request arrives", func() {
			source.add(queue.Request{TeamID: team, Version: 1, Reason: "loot"})

			convey.Convey("Then the worker precomputes the plan", func() {
				convey.So(waitFor(func() bool { return planner.total() == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a failing request is followed by a good one", func() {
			source.add(queue.Request{TeamID: uuid.New(), Version: 1})
			source.add(queue.Request{TeamID: team, Version: 1})

			convey.Convey("Then the loop keeps going", func() {
				convey.So(waitFor(func() bool { return planner.total() == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.Convey("Then it stops gracefully and a second call is safe", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the source closes", func() {
			_ = source.Close()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.Convey("Then the worker exits", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		snaps := newMockSnapshots()
		planner := newMockPlanner()

		pool := worker.NewPool(4, q, snaps, planner, worker.WithMetricsInterval(10*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.Convey("Then it has the requested size", func() {
			convey.So(pool.Size(), convey.ShouldEqual, 4)
		})

		convey.Convey("When many teams are re-solved concurrently", func() {
			pool.Start(ctx)
			const teams = 20
			for i := 0; i < teams; i++ {
				id := uuid.New()
				snaps.set(id, 1)
				convey.So(q.Enqueue(ctx, queue.Request{TeamID: id, Version: 1, Enqueued: time.Now()}), convey.ShouldBeNil)
			}

			convey.Convey("Then every plan is precomputed once", func() {
				convey.So(waitFor(func() bool { return planner.total() == teams }), convey.ShouldBeTrue)
				convey.So(pool.Processed(), convey.ShouldEqual, teams)
			})

			convey.Convey("Then shutdown closes the queue and returns", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a zero size is requested", func() {
			p := worker.NewPool(0, q, snaps, planner)

			convey.Convey("Then it defaults to at least one worker", func() {
				convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When stopped", func() {
			pool.Start(ctx)
			done := make(chan struct{})
			go func() {
				pool.Stop()
				close(done)
			}()

			convey.Convey("Then Stop returns", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("pool did not stop")
				}
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
