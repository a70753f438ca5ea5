// Package metrics provides Prometheus metrics for the rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Rating engine
	racesProcessed       *prometheus.CounterVec
	raceNoops            prometheus.Counter
	ratingUpdateLatency  prometheus.Histogram
	athletesRated        prometheus.Counter
	athleteWriteFailures *prometheus.CounterVec

	// Text analysis
	textAnalyses       prometheus.Counter
	traitExtractions   prometheus.Counter
	textUpdatesApplied prometheus.Counter

	// Imports
	imports                 *prometheus.CounterVec
	importDuplicates        prometheus.Counter
	importQueueSize         prometheus.Gauge
	importQueueCapacity     prometheus.Gauge
	importWorkers           prometheus.Gauge
	importProcessingLatency prometheus.Histogram

	// Rankings index
	rankedAthletes         prometheus.Gauge
	rankingsResyncs        prometheus.Counter
	rankingsResyncDuration prometheus.Histogram

	// Store
	breakerState *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "velorank",
		subsystem:        "engine",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.racesProcessed = m.counterVec("races_processed_total", "Races rated, by update method", "method")
	m.raceNoops = m.counter("race_noops_total", "Rating requests with no eligible finishers")
	m.ratingUpdateLatency = m.histogram("rating_update_latency_milliseconds", "Time to rate one race end to end")
	m.athletesRated = m.counter("athletes_rated_total", "Athlete rating records written after a race")
	m.athleteWriteFailures = m.counterVec("athlete_write_failures_total",
		"Per-athlete writes that failed and were skipped", "operation")

	m.textAnalyses = m.counter("text_analyses_total", "Text analysis requests")
	m.traitExtractions = m.counter("trait_extractions_total", "Trait extractions found in analysed text")
	m.textUpdatesApplied = m.counter("text_updates_applied_total", "Athlete updates applied from text analysis")

	m.imports = m.counterVec("imports_total", "Imported races, by outcome", "outcome")
	m.importDuplicates = m.counter("import_duplicates_total", "Import batches rejected as already seen")
	m.importQueueSize = m.gauge("import_queue_size", "Import batches waiting in the queue")
	m.importQueueCapacity = m.gauge("import_queue_capacity", "Capacity of the import queue")
	m.importWorkers = m.gauge("import_workers", "Running import workers")
	m.importProcessingLatency = m.histogram("import_processing_latency_milliseconds", "Time to process one import batch")

	m.rankedAthletes = m.gauge("ranked_athletes", "Athletes in the rankings index")
	m.rankingsResyncs = m.counter("rankings_resyncs_total", "Rankings index rebuilds from the store")
	m.rankingsResyncDuration = m.histogram("rankings_resync_duration_milliseconds", "Time to rebuild the rankings index")

	m.breakerState = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "store_breaker_state", Help: "Store circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.rateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
}

// RecordRaceProcessed counts a rated race.
func RecordRaceProcessed(method string) { globalManager.racesProcessed.WithLabelValues(method).Inc() }

// RecordRaceNoop counts a race with nothing to rate.
func RecordRaceNoop() { globalManager.raceNoops.Inc() }

// RecordRatingUpdateLatency records the duration of one race update in milliseconds.
func RecordRatingUpdateLatency(ms float64) { globalManager.ratingUpdateLatency.Observe(ms) }

// RecordAthletesRated adds n written athlete records.
func RecordAthletesRated(n int) { globalManager.athletesRated.Add(float64(n)) }

// RecordAthleteWriteFailure counts a skipped per-athlete write.
func RecordAthleteWriteFailure(operation string) {
	globalManager.athleteWriteFailures.WithLabelValues(operation).Inc()
}

// RecordTextAnalysis counts an analysis request and its extractions.
func RecordTextAnalysis(extractions int) {
	globalManager.textAnalyses.Inc()
	globalManager.traitExtractions.Add(float64(extractions))
}

// RecordTextUpdatesApplied adds n text-derived athlete updates.
func RecordTextUpdatesApplied(n int) { globalManager.textUpdatesApplied.Add(float64(n)) }

// RecordImport counts an imported race by outcome ("ok", "failed").
func RecordImport(outcome string) { globalManager.imports.WithLabelValues(outcome).Inc() }

// RecordImportDuplicate counts a rejected duplicate batch.
func RecordImportDuplicate() { globalManager.importDuplicates.Inc() }

// UpdateImportQueueSize sets the import queue backlog.
func UpdateImportQueueSize(size int) { globalManager.importQueueSize.Set(float64(size)) }

// UpdateImportQueueCapacity sets the import queue capacity.
func UpdateImportQueueCapacity(capacity int) { globalManager.importQueueCapacity.Set(float64(capacity)) }

// UpdateImportWorkers sets the number of running import workers.
func UpdateImportWorkers(n int) { globalManager.importWorkers.Set(float64(n)) }

// RecordImportProcessingLatency records the duration of one batch in milliseconds.
func RecordImportProcessingLatency(ms float64) { globalManager.importProcessingLatency.Observe(ms) }

// UpdateRankedAthletes sets the size of the rankings index.
func UpdateRankedAthletes(n int) { globalManager.rankedAthletes.Set(float64(n)) }

// RecordRankingsResync records one rebuild of the rankings index.
func RecordRankingsResync(ms float64) {
	globalManager.rankingsResyncs.Inc()
	globalManager.rankingsResyncDuration.Observe(ms)
}

// UpdateBreakerState sets the state of a named circuit breaker.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordRateLimited counts a throttled request.
func RecordRateLimited(endpoint string) { globalManager.rateLimited.WithLabelValues(endpoint).Inc() }

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
