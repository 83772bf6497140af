// Package metrics holds the Prometheus counters of the scan and query layers.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "hashkv"

// Fallback reasons.
const (
	ReasonIndexUnavailable = "index_unavailable"
	ReasonIndexEmpty       = "index_empty"
)

type Metrics struct {
	Registry *prometheus.Registry

	PagesFetched    prometheus.Counter
	ScansIncomplete prometheus.Counter
	IndexHits       prometheus.Counter
	Fallbacks       *prometheus.CounterVec
}

// New creates the counters and registers them in a fresh registry.
func New() *Metrics {
	m := Metrics{
		Registry: prometheus.NewRegistry(),
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_pages_fetched_total",
			Help:      "Pages requested from the store by the scanner.",
		}),
		ScansIncomplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_incomplete_total",
			Help:      "Scans stopped by the iteration bound.",
		}),
		IndexHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_index_hits_total",
			Help:      "Queries answered by the index.",
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_fallbacks_total",
			Help:      "Queries answered by a scan, by reason.",
		}, []string{"reason"}),
	}

	m.Registry.MustRegister(
		m.PagesFetched,
		m.ScansIncomplete,
		m.IndexHits,
		m.Fallbacks,
	)

	return &m
}

func (m *Metrics) PageFetched() {
	if m != nil {
		m.PagesFetched.Inc()
	}
}

func (m *Metrics) ScanIncomplete() {
	if m != nil {
		m.ScansIncomplete.Inc()
	}
}

func (m *Metrics) IndexHit() {
	if m != nil {
		m.IndexHits.Inc()
	}
}

func (m *Metrics) Fallback(reason string) {
	if m != nil {
		m.Fallbacks.WithLabelValues(reason).Inc()
	}
}

// WriteText writes every metric of the registry in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}

	mfs, err := m.Registry.Gather()
	if err != nil {
		return errors.Wrap(err, "cannot gather metrics")
	}

	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
