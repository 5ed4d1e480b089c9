package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the watcher. All methods are
// safe on a nil receiver so tests can run without metrics.
type Metrics struct {
	Registry              *prometheus.Registry
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       prometheus.Histogram
	PagesFetchedTotal     prometheus.Counter
	ItemsParsedTotal      prometheus.Counter
	FragmentsSkippedTotal *prometheus.CounterVec
	ErrorsTotal           *prometheus.CounterVec
	NewItems              prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_requests_total",
			Help: "Total HTTP requests issued by the watcher.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watcher_request_duration_seconds",
			Help:    "HTTP request latency for browse-page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pagesFetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watcher_pages_fetched_total",
			Help: "Total browse pages fetched successfully.",
		},
	)
	itemsParsed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watcher_items_parsed_total",
			Help: "Total listing items extracted from browse pages.",
		},
	)
	fragmentsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_fragments_skipped_total",
			Help: "Total listing fragments skipped during parsing, by reason.",
		},
		[]string{"reason"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_errors_total",
			Help: "Total fetch errors by type.",
		},
		[]string{"error_type"},
	)
	newItems := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watcher_new_items",
			Help: "Number of new items discovered by the latest run.",
		},
	)

	registry.MustRegister(requests, requestDuration, pagesFetched, itemsParsed, fragmentsSkipped, errorsTotal, newItems)

	return &Metrics{
		Registry:              registry,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		PagesFetchedTotal:     pagesFetched,
		ItemsParsedTotal:      itemsParsed,
		FragmentsSkippedTotal: fragmentsSkipped,
		ErrorsTotal:           errorsTotal,
		NewItems:              newItems,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPages increments the fetched-pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

// IncItems increments the parsed-items counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsParsedTotal.Inc()
}

// IncFragmentSkipped increments the skipped-fragments counter for a reason.
func (m *Metrics) IncFragmentSkipped(reason string) {
	if m == nil {
		return
	}
	m.FragmentsSkippedTotal.WithLabelValues(reason).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetNewItems records how many new items the latest run discovered.
func (m *Metrics) SetNewItems(n int) {
	if m == nil {
		return
	}
	m.NewItems.Set(float64(n))
}
