// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Detection metrics
	RecordsReceived  *prometheus.CounterVec
	RecordsAccepted  *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	DuplicatesTotal  prometheus.Counter
	ReplacedTotal    prometheus.Counter
	BatchesProcessed *prometheus.CounterVec
	BatchLatency     *prometheus.HistogramVec

	// Cache metrics
	DetectedCacheSize  prometheus.Gauge
	SignatureCacheSize prometheus.Gauge
	CacheEvictions     *prometheus.CounterVec

	// Upstream metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	GatewayRequests *prometheus.CounterVec

	// Sink metrics
	SinkWriteDuration *prometheus.HistogramVec
	SinkWriteErrors   *prometheus.CounterVec

	// Strategy metrics
	StrategyDetected *prometheus.GaugeVec
	StrategyErrors   *prometheus.GaugeVec

	// Health metrics
	StrategiesRunning   prometheus.Gauge
	LastCandidateUnixTS prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_token_radar"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RecordsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records_received_total",
			Help:      "Candidate records received from strategies",
		}, []string{"strategy"}),
		RecordsAccepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records_accepted_total",
			Help:      "Candidate records accepted by the filter",
		}, []string{"source"}),
		RecordsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records_rejected_total",
			Help:      "Candidate records rejected by reason",
		}, []string{"reason"}),
		DuplicatesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "duplicates_total",
			Help:      "Records skipped because the address was already detected",
		}),
		ReplacedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "replaced_total",
			Help:      "Cached records replaced by a higher trending score",
		}),
		BatchesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "batches_processed_total",
			Help:      "Detection batches processed by strategy",
		}, []string{"strategy"}),
		BatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "batch_latency_seconds",
			Help:      "Time from batch emission to pipeline completion",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),

		DetectedCacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "detected_size",
			Help:      "Current number of detected tokens held",
		}),
		SignatureCacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "signatures_size",
			Help:      "Current number of processed signatures held",
		}),
		CacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries evicted from bounded caches",
		}, []string{"cache"}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Failed Solana RPC calls",
		}, []string{"method"}),
		GatewayRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "requests_total",
			Help:      "Market data gateway requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		SinkWriteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_duration_seconds",
			Help:      "Sink write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink", "operation"}),
		SinkWriteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_errors_total",
			Help:      "Sink write errors",
		}, []string{"sink", "operation"}),

		StrategyDetected: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "detected",
			Help:      "Records detected by strategy since start",
		}, []string{"strategy"}),
		StrategyErrors: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "errors",
			Help:      "Transient errors by strategy since start",
		}, []string{"strategy"}),

		StrategiesRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "strategies_running",
			Help:      "Number of strategies currently running",
		}),
		LastCandidateUnixTS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_candidate_timestamp",
			Help:      "Unix timestamp of the last accepted candidate",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// BatchStats is the per-batch tally reported by the coordinator.
type BatchStats struct {
	Strategy   string
	Received   int
	Duplicates int
	Replaced   int
	Latency    time.Duration
}

// ObserveBatch records one processed detection batch.
func (m *Metrics) ObserveBatch(s BatchStats) {
	if m == nil {
		return
	}
	m.BatchesProcessed.WithLabelValues(s.Strategy).Inc()
	m.RecordsReceived.WithLabelValues(s.Strategy).Add(float64(s.Received))
	m.DuplicatesTotal.Add(float64(s.Duplicates))
	m.ReplacedTotal.Add(float64(s.Replaced))
	m.BatchLatency.WithLabelValues(s.Strategy).Observe(s.Latency.Seconds())
}

// RecordAccepted counts an accepted candidate from source.
func (m *Metrics) RecordAccepted(source string, at time.Time) {
	if m == nil {
		return
	}
	m.RecordsAccepted.WithLabelValues(source).Inc()
	m.LastCandidateUnixTS.Set(float64(at.Unix()))
}

// RecordRejected counts a rejected record under each of its reasons.
func (m *Metrics) RecordRejected(reasons ...string) {
	if m == nil {
		return
	}
	for _, r := range reasons {
		m.RecordsRejected.WithLabelValues(r).Inc()
	}
}

// UpdateCacheSizes updates the cache size gauges.
func (m *Metrics) UpdateCacheSizes(detected, signatures int) {
	if m == nil {
		return
	}
	m.DetectedCacheSize.Set(float64(detected))
	m.SignatureCacheSize.Set(float64(signatures))
}

// RecordEvictions counts entries evicted from the named cache.
func (m *Metrics) RecordEvictions(cache string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheEvictions.WithLabelValues(cache).Add(float64(n))
}

// SetStrategiesRunning updates the running strategies gauge.
func (m *Metrics) SetStrategiesRunning(n int) {
	if m == nil {
		return
	}
	m.StrategiesRunning.Set(float64(n))
}

// UpdateStrategy publishes a strategy's running totals.
func (m *Metrics) UpdateStrategy(name string, detected, errors int64) {
	if m == nil {
		return
	}
	m.StrategyDetected.WithLabelValues(name).Set(float64(detected))
	m.StrategyErrors.WithLabelValues(name).Set(float64(errors))
}

// ObserveRPC matches solana.WithObserver.
func (m *Metrics) ObserveRPC(method string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(took.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// ObserveGateway matches marketdata.WithObserver.
func (m *Metrics) ObserveGateway(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveSink records a sink write.
func (m *Metrics) ObserveSink(sink, operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.SinkWriteDuration.WithLabelValues(sink, operation).Observe(took.Seconds())
	if err != nil {
		m.SinkWriteErrors.WithLabelValues(sink, operation).Inc()
	}
}
