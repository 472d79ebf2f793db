// Package metrics provides Prometheus metrics for the loot solver service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       prometheus.Registerer

	// Solver
	solves        *prometheus.CounterVec
	solveLatency  prometheus.Histogram
	plannedWeeks  *prometheus.HistogramVec
	tokenWeeks    *prometheus.CounterVec
	outOfBand     prometheus.Counter
	batchSize     prometheus.Histogram
	solverErrors  *prometheus.CounterVec
	teamsTracked  prometheus.Gauge
	lootRecorded  prometheus.Counter
	lootDuplicate prometheus.Counter
	lootDeleted   prometheus.Counter

	// Plan cache
	cacheRequests *prometheus.CounterVec
	cacheErrors   *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryShardCount     prometheus.Gauge
	repositoryTeamsPerShard  *prometheus.GaugeVec
	repositoryUpdateLatency  prometheus.Histogram
	repositoryQueryLatency   prometheus.Histogram
	repositoryLootRecordsAll prometheus.Gauge

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// DefaultLatencyBuckets are the millisecond buckets of the latency histograms.
var DefaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // bucket layout

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "lootsolver",
		subsystem:      "service",
		latencyBuckets: DefaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(auto promauto.Factory, name, help string) prometheus.Counter {
	return auto.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
}

func (m *Manager) counterVec(auto promauto.Factory, name, help string, labels ...string) *prometheus.CounterVec {
	return auto.NewCounterVec(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
}

func (m *Manager) gauge(auto promauto.Factory, name, help string) prometheus.Gauge {
	return auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
}

func (m *Manager) histogram(auto promauto.Factory, name, help string, buckets []float64) prometheus.Histogram {
	return auto.NewHistogram(prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	weekBuckets := prometheus.LinearBuckets(1, 1, 16)

	m.solves = m.counterVec(auto, "solves_total", "Total number of solves by mode and outcome", "mode", "outcome")
	m.solveLatency = m.histogram(auto, "solve_latency_milliseconds", "Histogram of solve latency in milliseconds", m.latencyBuckets)
	m.plannedWeeks = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "planned_weeks",
		Help:      "Number of weeks planned per stage",
		Buckets:   weekBuckets,
	}, []string{"stage"})
	m.tokenWeeks = m.counterVec(auto, "token_weeks_total", "Total number of planned token weeks per stage", "stage")
	m.outOfBand = m.counter(auto, "out_of_band_total", "Total number of equipped slots without a matching loot record")
	m.batchSize = m.histogram(auto, "batch_size", "Number of snapshots per batch solve", prometheus.ExponentialBuckets(1, 2, 8))
	m.solverErrors = m.counterVec(auto, "solver_errors_total", "Total number of failed solves by kind", "kind")
	m.teamsTracked = m.gauge(auto, "teams_total", "Number of stored teams")
	m.lootRecorded = m.counter(auto, "loot_records_total", "Total number of loot records accepted")
	m.lootDuplicate = m.counter(auto, "loot_duplicate_total", "Total number of replayed loot submissions")
	m.lootDeleted = m.counter(auto, "loot_deleted_total", "Total number of loot records deleted")

	m.cacheRequests = m.counterVec(auto, "plan_cache_requests_total", "Plan cache lookups by backend and result", "backend", "result")
	m.cacheErrors = m.counterVec(auto, "plan_cache_errors_total", "Plan cache failures by backend", "backend")

	m.httpRequests = m.counterVec(auto, "http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryShardCount = m.gauge(auto, "repository_shard_count", "Total number of repository shards")
	m.repositoryTeamsPerShard = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_teams_per_shard",
		Help:      "Number of teams per shard",
	}, []string{"shard_id"})
	m.repositoryUpdateLatency = m.histogram(auto, "repository_update_latency_milliseconds", "Repository update latency in milliseconds", m.latencyBuckets)
	m.repositoryQueryLatency = m.histogram(auto, "repository_query_latency_milliseconds", "Repository query latency in milliseconds", m.latencyBuckets)
	m.repositoryLootRecordsAll = m.gauge(auto, "repository_loot_records", "Number of stored loot records across all teams")

	m.queueSize = m.gauge(auto, "queue_size", "Current number of pending re-solve requests")
	m.queueCapacity = m.gauge(auto, "queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge(auto, "queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueued = m.counter(auto, "queue_enqueue_total", "Total number of enqueued re-solve requests")
	m.queueDequeued = m.counter(auto, "queue_dequeue_total", "Total number of dequeued re-solve requests")
	m.queueEnqueueErrors = m.counter(auto, "queue_enqueue_errors_total", "Total number of rejected re-solve requests")
	m.queueProcessingLatency = m.histogram(auto, "queue_processing_latency_milliseconds", "Time requests spend queued in milliseconds", m.latencyBuckets)

	m.workerCount = m.gauge(auto, "worker_count", "Number of started workers")
	m.workerActiveCount = m.gauge(auto, "worker_active_count", "Number of workers currently solving")
	m.workerIdleCount = m.gauge(auto, "worker_idle_count", "Number of idle workers")
	m.workerMessagesPerSecond = m.gauge(auto, "worker_messages_per_second", "Average re-solves per second since start")
	m.workerProcessingLatency = m.histogram(auto, "worker_processing_latency_milliseconds", "Worker re-solve latency in milliseconds", m.latencyBuckets)
	m.workerErrors = m.counter(auto, "worker_errors_total", "Total number of failed re-solves")

	m.errorsByComponent = m.counterVec(auto, "errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec(auto, "errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge(auto, "system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge(auto, "system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram(auto, "system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Solver metrics.

// RecordSolve counts a solve by mode (normal, conservative) and outcome.
func RecordSolve(mode, outcome string) {
	globalManager.solves.WithLabelValues(mode, outcome).Inc()
}

// RecordSolveLatency records solve latency in milliseconds.
func RecordSolveLatency(latencyMs float64) {
	globalManager.solveLatency.Observe(latencyMs)
}

// RecordPlannedWeeks records the length of a stage's plan.
func RecordPlannedWeeks(stage string, weeks int) {
	globalManager.plannedWeeks.WithLabelValues(stage).Observe(float64(weeks))
}

// RecordTokenWeeks adds the token weeks planned for a stage.
func RecordTokenWeeks(stage string, weeks int) {
	globalManager.tokenWeeks.WithLabelValues(stage).Add(float64(weeks))
}

// RecordOutOfBand adds equipped slots found without a loot record.
func RecordOutOfBand(n int) {
	globalManager.outOfBand.Add(float64(n))
}

// RecordBatchSize records the number of snapshots in a batch solve.
func RecordBatchSize(n int) {
	globalManager.batchSize.Observe(float64(n))
}

// RecordSolverError counts a failed solve by error kind.
func RecordSolverError(kind string) {
	globalManager.solverErrors.WithLabelValues(kind).Inc()
}

// UpdateTeamsTotal sets the number of stored teams.
func UpdateTeamsTotal(count int) {
	globalManager.teamsTracked.Set(float64(count))
}

// RecordLootRecorded adds accepted loot records.
func RecordLootRecorded(n int) {
	globalManager.lootRecorded.Add(float64(n))
}

// RecordLootDuplicate counts a replayed loot submission.
func RecordLootDuplicate() {
	globalManager.lootDuplicate.Inc()
}

// RecordLootDeleted adds deleted loot records.
func RecordLootDeleted(n int) {
	globalManager.lootDeleted.Add(float64(n))
}

// Plan cache metrics.

// RecordCacheHit counts a plan served from the cache.
func RecordCacheHit(backend string) {
	globalManager.cacheRequests.WithLabelValues(backend, cacheHit).Inc()
}

// RecordCacheMiss counts a cache lookup that found no plan.
func RecordCacheMiss(backend string) {
	globalManager.cacheRequests.WithLabelValues(backend, cacheMiss).Inc()
}

// RecordCacheError counts a failed cache operation.
func RecordCacheError(backend string) {
	globalManager.cacheErrors.WithLabelValues(backend).Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Repository metrics.

// UpdateRepositoryShardCount sets the total number of repository shards.
func UpdateRepositoryShardCount(count int) {
	globalManager.repositoryShardCount.Set(float64(count))
}

// UpdateRepositoryTeamsPerShard sets the number of teams held by a shard.
func UpdateRepositoryTeamsPerShard(shardID string, count int) {
	globalManager.repositoryTeamsPerShard.WithLabelValues(shardID).Set(float64(count))
}

// UpdateRepositoryLootRecords sets the number of stored loot records.
func UpdateRepositoryLootRecords(count int) {
	globalManager.repositoryLootRecordsAll.Set(float64(count))
}

// RecordRepositoryUpdateLatency records repository update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long a request waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerCount sets the number of started workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the average re-solves per second.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
