package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	ResolutionErrors   *prometheus.CounterVec
	RegionOutcomes     *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the /health JSON body
	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot holds current counter values for the health endpoint.
type Snapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalResolutions int64   `json:"total_resolutions"`
	FailedCount      int64   `json:"failed_resolutions"`
	TotalDuration    float64 `json:"-"`
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geolander_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geolander_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geolander_resolutions_total",
				Help: "Total number of URL resolutions",
			},
			[]string{"region", "status"},
		),
		ResolutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geolander_resolution_duration_seconds",
				Help:    "End-to-end resolution duration in seconds",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
			},
			[]string{"region"},
		),
		ResolutionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geolander_resolution_errors_total",
				Help: "Resolution failures by error kind",
			},
			[]string{"region", "kind"},
		),
		RegionOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geolander_region_outcomes_total",
				Help: "Region reconciliation outcomes (match, mismatch, lookup_failed)",
			},
			[]string{"region", "outcome"},
		),
	}
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// RecordResolution records a completed resolution attempt.
func (m *Metrics) RecordResolution(region, status string, duration time.Duration) {
	m.ResolutionsTotal.WithLabelValues(region, status).Inc()
	m.ResolutionDuration.WithLabelValues(region).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalResolutions++
	if status != "ok" {
		m.snapshot.FailedCount++
	}
	m.snapshot.TotalDuration += duration.Seconds()
	m.mu.Unlock()
}

// RecordResolutionError records a failure by kind.
func (m *Metrics) RecordResolutionError(region, kind string) {
	m.ResolutionErrors.WithLabelValues(region, kind).Inc()
}

// RecordOutcome records a region reconciliation outcome.
func (m *Metrics) RecordOutcome(region, outcome string) {
	m.RegionOutcomes.WithLabelValues(region, outcome).Inc()
}

// GetSnapshot returns current values for the health endpoint.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Uptime returns time since process start.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
