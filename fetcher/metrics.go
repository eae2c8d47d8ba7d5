package fetcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	BlockPauses     prometheus.Counter
	OutcomesTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genretag_requests_total",
			Help: "Total catalog page requests issued.",
		},
		[]string{"page"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genretag_request_duration_seconds",
			Help:    "Catalog request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "genretag_retries_total",
			Help: "Total retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genretag_errors_total",
			Help: "Total fetch errors by type.",
		},
		[]string{"error_type"},
	)
	blockPauses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "genretag_block_pauses_total",
			Help: "Folder-wide cooldown windows opened after sustained blocks.",
		},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genretag_outcomes_total",
			Help: "Terminal classifications recorded, by kind.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, blockPauses, outcomes)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		BlockPauses:     blockPauses,
		OutcomesTotal:   outcomes,
	}
}

// IncRequest increments the requests counter for a page kind.
func (m *Metrics) IncRequest(page string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(page).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncBlockPause counts one folder-wide cooldown window.
func (m *Metrics) IncBlockPause() {
	if m == nil {
		return
	}
	m.BlockPauses.Inc()
}

// IncOutcome counts one terminal classification.
func (m *Metrics) IncOutcome(kind string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(kind).Inc()
}
