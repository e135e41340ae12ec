// Package metrics defines the Prometheus collectors for clause translation
// and the collaborators it calls.
package metrics

import (
	"context"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors. A nil *Metrics records nothing.
type Metrics struct {
	ConversionsTotal    *prometheus.CounterVec
	IndexLookupDuration *prometheus.HistogramVec
	IndexLookupErrors   *prometheus.CounterVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clausenav_conversions_total",
				Help: "Clause translations by translator and outcome (fit, lossy, not_fit, no_match, error).",
			},
			[]string{"translator", "outcome"},
		),
		IndexLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clausenav_index_lookup_duration_seconds",
				Help:    "Index value resolver latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"field", "method"},
		),
		IndexLookupErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clausenav_index_lookup_errors_total",
				Help: "Failed index value lookups by field.",
			},
			[]string{"field"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clausenav_cache_hits_total",
				Help: "Index value cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clausenav_cache_misses_total",
				Help: "Index value cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.ConversionsTotal,
		m.IndexLookupDuration,
		m.IndexLookupErrors,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

func (m *Metrics) ObserveConversion(translator, outcome string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(translator, outcome).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// InstrumentIndex wraps an index value resolver with latency and error
// collectors labelled by field.
func (m *Metrics) InstrumentIndex(field string, next clause.IndexValueResolver) clause.IndexValueResolver {
	if m == nil {
		return next
	}
	return &instrumentedIndex{metrics: m, field: field, next: next}
}

type instrumentedIndex struct {
	metrics *Metrics
	field   string
	next    clause.IndexValueResolver
}

func (i *instrumentedIndex) IndexedValues(ctx context.Context, s string) ([]string, error) {
	start := time.Now()
	values, err := i.next.IndexedValues(ctx, s)
	i.observe("string", start, err)
	return values, err
}

func (i *instrumentedIndex) IndexedValuesForID(ctx context.Context, id int64) ([]string, error) {
	start := time.Now()
	values, err := i.next.IndexedValuesForID(ctx, id)
	i.observe("id", start, err)
	return values, err
}

func (i *instrumentedIndex) observe(method string, start time.Time, err error) {
	i.metrics.IndexLookupDuration.WithLabelValues(i.field, method).Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.IndexLookupErrors.WithLabelValues(i.field).Inc()
	}
}
