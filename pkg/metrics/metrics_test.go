package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then its collectors are registered there", func() {
				So(manager, ShouldNotBeNil)
				manager.solves.WithLabelValues("normal", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "lootsolver_service_solves_total")
			})
		})

		Convey("When creating with custom naming", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("raid"),
				WithSubsystem("planner"),
				WithLatencyBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names follow the options", func() {
				manager.lootRecorded.Add(3)
				So(counterValue(manager.lootRecorded), ShouldEqual, 3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					found = found || f.GetName() == "raid_planner_loot_records_total"
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "lootsolver")
				So(manager.subsystem, ShouldEqual, "service")
				So(manager.latencyBuckets, ShouldResemble, DefaultLatencyBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording solver metrics", func() {
			before := counterValue(globalManager.solves.WithLabelValues("conservative", "ok"))
			RecordSolve("conservative", "ok")
			RecordSolveLatency(1.5)
			RecordPlannedWeeks("first_floor", 3)
			RecordTokenWeeks("first_floor", 1)
			RecordOutOfBand(2)
			RecordBatchSize(4)
			RecordSolverError("invalid_input")

			Convey("Then the counters move", func() {
				So(counterValue(globalManager.solves.WithLabelValues("conservative", "ok")), ShouldEqual, before+1)
				So(counterValue(globalManager.tokenWeeks.WithLabelValues("first_floor")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording cache lookups", func() {
			hits := counterValue(globalManager.cacheRequests.WithLabelValues("memory", cacheHit))
			RecordCacheHit("memory")
			RecordCacheMiss("memory")
			RecordCacheError("redis")

			Convey("Then hits and misses are split by result", func() {
				So(counterValue(globalManager.cacheRequests.WithLabelValues("memory", cacheHit)), ShouldEqual, hits+1)
				So(counterValue(globalManager.cacheRequests.WithLabelValues("memory", cacheMiss)), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the rest of the surface", func() {
			So(func() {
				UpdateTeamsTotal(2)
				RecordLootRecorded(3)
				RecordLootDuplicate()
				RecordLootDeleted(1)
				RecordHTTPRequest("/solve", "POST", "200")
				RecordHTTPRequestDuration("/solve", "POST", "200", 3)
				UpdateRepositoryShardCount(4)
				UpdateRepositoryTeamsPerShard("shard_0", 1)
				UpdateRepositoryLootRecords(10)
				RecordRepositoryUpdateLatency(0.1)
				RecordRepositoryQueryLatency(0.1)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(2)
				UpdateWorkerCount(2)
				UpdateWorkerActiveCount(1)
				UpdateWorkerIdleCount(1)
				UpdateWorkerMessagesPerSecond(0.5)
				RecordWorkerProcessingLatency(4)
				RecordWorkerError()
				RecordErrorByComponent("api", "bad_request")
				RecordErrorByEndpoint("/solve", "POST", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("When gathering the registry", func() {
			RecordQueueEnqueue()
			families, err := GetRegistry().Gather()

			Convey("Then every family carries the service prefix", func() {
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "lootsolver_service_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := counterValue(globalManager.lootDuplicate)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordLootDuplicate()
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(counterValue(globalManager.lootDuplicate), ShouldEqual, before+1000)
		})
	})
}
