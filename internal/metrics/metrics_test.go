package metrics_test

import (
	"bytes"
	"testing"

	"github.com/chaisql/hashkv/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics

	require.NotPanics(t, func() {
		m.PageFetched()
		m.ScanIncomplete()
		m.IndexHit()
		m.Fallback(metrics.ReasonIndexEmpty)
	})
	require.NoError(t, m.WriteText(&bytes.Buffer{}))
}

func TestMetrics(t *testing.T) {
	m := metrics.New()

	m.PageFetched()
	m.PageFetched()
	m.ScanIncomplete()
	m.IndexHit()
	m.Fallback(metrics.ReasonIndexEmpty)
	m.Fallback(metrics.ReasonIndexUnavailable)
	m.Fallback(metrics.ReasonIndexUnavailable)

	require.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetched))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ScansIncomplete))
	require.Equal(t, 1.0, testutil.ToFloat64(m.IndexHits))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues(metrics.ReasonIndexEmpty)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues(metrics.ReasonIndexUnavailable)))

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	require.Contains(t, buf.String(), "hashkv_scan_pages_fetched_total 2")
	require.Contains(t, buf.String(), `hashkv_query_fallbacks_total{reason="index_unavailable"} 2`)
}
