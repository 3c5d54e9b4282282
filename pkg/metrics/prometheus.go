// Package metrics provides Prometheus metrics for the saferoute risk service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// riskScoreBuckets spans the [0,100] score range in steps of ten.
var riskScoreBuckets = prometheus.LinearBuckets(0, 10, 11) //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the risk service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring metrics
	pointQueries           prometheus.Counter
	pointScores            prometheus.Histogram
	routeCandidatesScored  prometheus.Counter
	routeCandidateFailures *prometheus.CounterVec
	routeScoringLatency    prometheus.Histogram
	samplePointsScored     prometheus.Counter

	// Incident store metrics
	incidentLoads         *prometheus.CounterVec
	incidentLoadDuration  prometheus.Histogram
	incidentsPerCategory  *prometheus.GaugeVec
	incidentsTotal        prometheus.Gauge
	unavailableCategories prometheus.Gauge

	// Upstream routing provider metrics
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Worker pool metrics
	workerActiveCount prometheus.Gauge
	workerQueuedJobs  prometheus.Gauge
	workerJobLatency  prometheus.Histogram

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "saferoute",
		subsystem:        "risk",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.pointQueries = auto.NewCounter(m.counterOpts("point_queries_total",
		"Total number of point risk evaluations"))
	m.pointScores = auto.NewHistogram(m.histogramOpts("point_score",
		"Distribution of point risk scores", riskScoreBuckets))
	m.routeCandidatesScored = auto.NewCounter(m.counterOpts("route_candidates_scored_total",
		"Total number of route candidates scored successfully"))
	m.routeCandidateFailures = auto.NewCounterVec(m.counterOpts("route_candidate_failures_total",
		"Total number of route candidates that failed to score"), []string{"reason"})
	m.routeScoringLatency = auto.NewHistogram(m.histogramOpts("route_scoring_latency_milliseconds",
		"Latency of scoring one route candidate in milliseconds", m.histogramBuckets))
	m.samplePointsScored = auto.NewCounter(m.counterOpts("sample_points_scored_total",
		"Total number of route sample points scored"))

	m.incidentLoads = auto.NewCounterVec(m.counterOpts("incident_loads_total",
		"Incident store load attempts by result"), []string{"result"})
	m.incidentLoadDuration = auto.NewHistogram(m.histogramOpts("incident_load_duration_milliseconds",
		"Incident store load duration in milliseconds", m.histogramBuckets))
	m.incidentsPerCategory = auto.NewGaugeVec(m.gaugeOpts("incidents",
		"Number of incidents loaded per category"), []string{"category"})
	m.incidentsTotal = auto.NewGauge(m.gaugeOpts("incidents_total",
		"Number of incidents loaded across all categories"))
	m.unavailableCategories = auto.NewGauge(m.gaugeOpts("unavailable_categories",
		"Number of categories that failed to load"))

	m.upstreamRequests = auto.NewCounterVec(m.counterOpts("upstream_requests_total",
		"Routing provider requests by provider and outcome"), []string{"provider", "outcome"})
	m.upstreamLatency = auto.NewHistogram(m.histogramOpts("upstream_latency_milliseconds",
		"Routing provider latency in milliseconds", m.histogramBuckets))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count",
		"Number of running point-scoring workers"))
	m.workerQueuedJobs = auto.NewGauge(m.gaugeOpts("worker_queued_jobs",
		"Number of point-scoring jobs waiting for a worker"))
	m.workerJobLatency = auto.NewHistogram(m.histogramOpts("worker_job_latency_milliseconds",
		"Point-scoring job latency in milliseconds", m.histogramBuckets))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by HTTP endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Scoring Metrics Functions.

// RecordPointQuery counts one point evaluation and its resulting score.
func RecordPointQuery(score int) {
	globalManager.pointQueries.Inc()
	globalManager.pointScores.Observe(float64(score))
}

// RecordRouteScored counts a successfully scored candidate and its latency.
func RecordRouteScored(latencyMs float64) {
	globalManager.routeCandidatesScored.Inc()
	globalManager.routeScoringLatency.Observe(latencyMs)
}

// RecordRouteFailure counts a candidate that could not be scored.
func RecordRouteFailure(reason string) {
	globalManager.routeCandidateFailures.WithLabelValues(reason).Inc()
}

// RecordSamplePoints adds n to the scored sample point counter.
func RecordSamplePoints(n int) {
	globalManager.samplePointsScored.Add(float64(n))
}

// Incident Store Metrics Functions.

// RecordIncidentLoad records a load attempt outcome ("ok" or "error") and its duration.
func RecordIncidentLoad(result string, durationMs float64) {
	globalManager.incidentLoads.WithLabelValues(result).Inc()
	globalManager.incidentLoadDuration.Observe(durationMs)
}

// UpdateCategoryIncidents sets the number of incidents loaded for category.
func UpdateCategoryIncidents(category string, count int) {
	globalManager.incidentsPerCategory.WithLabelValues(category).Set(float64(count))
}

// UpdateIncidentsTotal sets the total number of loaded incidents.
func UpdateIncidentsTotal(count int) {
	globalManager.incidentsTotal.Set(float64(count))
}

// UpdateUnavailableCategories sets the number of categories that failed to load.
func UpdateUnavailableCategories(count int) {
	globalManager.unavailableCategories.Set(float64(count))
}

// Upstream Metrics Functions.

// RecordUpstreamRequest records a routing provider call.
func RecordUpstreamRequest(provider, outcome string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(provider, outcome).Inc()
	globalManager.upstreamLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerQueuedJobs sets the number of queued point jobs.
func UpdateWorkerQueuedJobs(count int) {
	globalManager.workerQueuedJobs.Set(float64(count))
}

// RecordWorkerJobLatency records the latency of one point-scoring job.
func RecordWorkerJobLatency(latencyMs float64) {
	globalManager.workerJobLatency.Observe(latencyMs)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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
