// Package metrics provides Prometheus metrics for the funnel service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render stages used as the stage label of the latency histogram.
const (
	StageSequence  = "sequence"
	StageClassify  = "classify"
	StageAggregate = "aggregate"
	StageCompare   = "compare"
	StageTotal     = "total"
)

// Manager manages all Prometheus metrics for the funnel service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Render metrics
	renders         *prometheus.CounterVec
	renderErrors    *prometheus.CounterVec
	stageLatency    *prometheus.HistogramVec
	eventsIngested  prometheus.Counter
	lastRenderUsers prometheus.Gauge
	lastRenderRoute prometheus.Gauge
	lastRenderNodes prometheus.Gauge
	lastRenderEdges prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

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
		namespace:        "funnel",
		subsystem:        "engine",
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

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.renders = auto.NewCounterVec(
		m.counterOpts("renders_total", "Total number of funnels rendered"),
		[]string{"engine", "compared"},
	)
	m.renderErrors = auto.NewCounterVec(
		m.counterOpts("render_errors_total", "Total number of failed renders by error kind"),
		[]string{"kind"},
	)
	m.stageLatency = auto.NewHistogramVec(
		m.histogramOpts("render_latency_milliseconds", "Render latency in milliseconds by pipeline stage", m.histogramBuckets),
		[]string{"stage"},
	)
	m.eventsIngested = auto.NewCounter(
		m.counterOpts("events_ingested_total", "Total number of log rows read by renders"),
	)
	m.lastRenderUsers = auto.NewGauge(m.gaugeOpts("last_render_users", "Users in the last rendered funnel"))
	m.lastRenderRoute = auto.NewGauge(m.gaugeOpts("last_render_routes", "Distinct routes in the last rendered funnel"))
	m.lastRenderNodes = auto.NewGauge(m.gaugeOpts("last_render_nodes", "Nodes in the last rendered funnel"))
	m.lastRenderEdges = auto.NewGauge(m.gaugeOpts("last_render_edges", "Edges in the last rendered funnel"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordRender increments the renders counter.
func RecordRender(engine string, compared bool) {
	globalManager.renders.WithLabelValues(engine, strconv.FormatBool(compared)).Inc()
}

// RecordRenderError increments the render errors counter for kind.
func RecordRenderError(kind string) {
	globalManager.renderErrors.WithLabelValues(kind).Inc()
}

// RecordStageLatency records the latency of one render stage in milliseconds.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordEventsIngested adds n rows to the ingested counter.
func RecordEventsIngested(n int) {
	if n > 0 {
		globalManager.eventsIngested.Add(float64(n))
	}
}

// UpdateLastRender sets the size gauges of the last render.
func UpdateLastRender(users, routes, nodes, edges int) {
	globalManager.lastRenderUsers.Set(float64(users))
	globalManager.lastRenderRoute.Set(float64(routes))
	globalManager.lastRenderNodes.Set(float64(nodes))
	globalManager.lastRenderEdges.Set(float64(edges))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
