// Package metrics provides Prometheus metrics for the talk scheduling engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scheduler.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Solve metrics
	solvesTotal      *prometheus.CounterVec
	solveDuration    prometheus.Histogram
	invalidConfigs   prometheus.Counter
	invalidProblems  prometheus.Counter
	bestHardScore    prometheus.Gauge
	bestSoftScore    prometheus.Gauge
	unplacedTalks    prometheus.Gauge
	talksPerSolve    prometheus.Histogram
	capacityOverflow prometheus.Counter

	// Search metrics
	startsTotal     *prometheus.CounterVec
	iterationsTotal prometheus.Counter
	movesEvaluated  prometheus.Counter
	movesAccepted   *prometheus.CounterVec
	bestImprovement prometheus.Counter
	exactNodesTotal prometheus.Counter

	// Start queue and worker metrics
	queueCapacity      prometheus.Gauge
	queueSize          prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerActiveCount  prometheus.Gauge
	workerStartLatency prometheus.Histogram
	workerErrors       prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "talksched",
		subsystem:        "solver",
		histogramBuckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.solvesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("solves_total"),
		Help:        "Total number of finished solves by mode and termination reason",
		ConstLabels: labels,
	}, []string{"mode", "termination"})

	m.solveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("solve_duration_milliseconds"),
		Help:        "Wall-clock duration of a solve in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.invalidConfigs = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("invalid_config_total"),
		Help:        "Solves rejected before search because of invalid configuration",
		ConstLabels: labels,
	})

	m.invalidProblems = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("invalid_problem_total"),
		Help:        "Solves rejected at construction because of structural problem errors",
		ConstLabels: labels,
	})

	m.bestHardScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("best_hard_score"),
		Help:        "Hard score of the most recent solve result",
		ConstLabels: labels,
	})

	m.bestSoftScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("best_soft_score"),
		Help:        "Soft score of the most recent solve result",
		ConstLabels: labels,
	})

	m.unplacedTalks = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("unplaced_talks"),
		Help:        "Number of unplaced talks in the most recent solve result",
		ConstLabels: labels,
	})

	m.talksPerSolve = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("talks_per_solve"),
		Help:        "Number of talks in solved instances",
		Buckets:     []float64{1, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})

	m.capacityOverflow = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("capacity_overflow_total"),
		Help:        "Solves where talks outnumber timeslot x room capacity",
		ConstLabels: labels,
	})

	m.startsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("starts_total"),
		Help:        "Finished search starts by termination reason",
		ConstLabels: labels,
	}, []string{"termination"})

	m.iterationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("iterations_total"),
		Help:        "Local search iterations across all starts",
		ConstLabels: labels,
	})

	m.movesEvaluated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("moves_evaluated_total"),
		Help:        "Candidate moves scored incrementally",
		ConstLabels: labels,
	})

	m.movesAccepted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("moves_accepted_total"),
		Help:        "Accepted moves by kind",
		ConstLabels: labels,
	}, []string{"kind"})

	m.bestImprovement = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("best_improvements_total"),
		Help:        "Times a start found a new best state",
		ConstLabels: labels,
	})

	m.exactNodesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("exact_nodes_total"),
		Help:        "Branch-and-bound nodes expanded in exact mode",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("start_queue_capacity"),
		Help:        "Capacity of the multi-start job queue",
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("start_queue_size"),
		Help:        "Pending start jobs",
		ConstLabels: labels,
	})

	m.queueEnqueueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("start_queue_enqueue_total"),
		Help:        "Start jobs enqueued",
		ConstLabels: labels,
	})

	m.queueDequeueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("start_queue_dequeue_total"),
		Help:        "Start jobs handed to workers",
		ConstLabels: labels,
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("start_queue_enqueue_errors_total"),
		Help:        "Start jobs rejected by a full or closed queue",
		ConstLabels: labels,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_active_count"),
		Help:        "Workers currently running a start",
		ConstLabels: labels,
	})

	m.workerStartLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_start_duration_milliseconds"),
		Help:        "Duration of a single search start in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_errors_total"),
		Help:        "Starts that failed to report an outcome",
		ConstLabels: labels,
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})
}

// RecordSolve records a finished solve.
func RecordSolve(mode, termination string, durationMs float64, hard, soft, unplaced int) {
	if !globalManager.enabled {
		return
	}
	globalManager.solvesTotal.WithLabelValues(mode, termination).Inc()
	globalManager.solveDuration.Observe(durationMs)
	globalManager.bestHardScore.Set(float64(hard))
	globalManager.bestSoftScore.Set(float64(soft))
	globalManager.unplacedTalks.Set(float64(unplaced))
}

// RecordInvalidConfig increments the invalid configuration counter.
func RecordInvalidConfig() {
	globalManager.invalidConfigs.Inc()
}

// RecordInvalidProblem increments the invalid problem counter.
func RecordInvalidProblem() {
	globalManager.invalidProblems.Inc()
}

// RecordInstanceSize observes the number of talks of a solved instance.
func RecordInstanceSize(talks int) {
	globalManager.talksPerSolve.Observe(float64(talks))
}

// RecordCapacityOverflow increments the capacity overflow counter.
func RecordCapacityOverflow() {
	globalManager.capacityOverflow.Inc()
}

// RecordStart records the aggregated counters of one finished search start.
func RecordStart(termination string, iterations, evaluations, improvements, nodes int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.startsTotal.WithLabelValues(termination).Inc()
	globalManager.iterationsTotal.Add(float64(iterations))
	globalManager.movesEvaluated.Add(float64(evaluations))
	globalManager.bestImprovement.Add(float64(improvements))
	globalManager.exactNodesTotal.Add(float64(nodes))
}

// RecordMovesAccepted adds accepted moves of the given kind.
func RecordMovesAccepted(kind string, n int64) {
	if n <= 0 {
		return
	}
	globalManager.movesAccepted.WithLabelValues(kind).Add(float64(n))
}

// UpdateQueueCapacity sets the start queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the number of pending start jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount adjusts the number of workers running a start.
func UpdateWorkerActiveCount(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerStartLatency records the duration of one start.
func RecordWorkerStartLatency(latencyMs float64) {
	globalManager.workerStartLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
