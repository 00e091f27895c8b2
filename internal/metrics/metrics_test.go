package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegistersAndIncrements(t *testing.T) {
	m := New()

	m.SyncLossTotal.Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(m.SyncLossTotal))

	m.FreqOffsetHz.Set(12.5)
	require.Equal(t, 12.5, testutil.ToFloat64(m.FreqOffsetHz))

	m.SubChannelBitErrors.WithLabelValues("5").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(m.SubChannelBitErrors.WithLabelValues("5")))
}

func TestHandler_ServesMetrics(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
