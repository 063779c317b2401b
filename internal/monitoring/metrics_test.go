package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordBar("grid")
	m.RecordBar("grid")
	m.RecordIntent("grid", "buy")
	m.RecordRejection("grid")
	m.RecordTrade("grid", "take_profit")
	m.RecordRun("grid", nil, 10*time.Millisecond)
	m.RecordRun("rsi", errors.New("no data"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.barsProcessed.WithLabelValues("grid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.intents.WithLabelValues("grid", "buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersRejected.WithLabelValues("grid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesClosed.WithLabelValues("grid", "take_profit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("grid", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("rsi", StatusFailed)))

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBar("grid")
		m.RecordIntent("grid", "sell")
		m.RecordRejection("grid")
		m.RecordTrade("grid", "stop_loss")
		m.RecordRun("grid", nil, time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordBar("macd")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `backtest_bars_processed_total{strategy="macd"} 1`)
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.RunStarted("rsi-1")
	h.RunStarted("grid-1")
	h.RunFinished("rsi-1", nil)

	snap := h.Snapshot()
	assert.Equal(t, "healthy", snap.Status)
	assert.Equal(t, []string{"grid-1"}, snap.ActiveRuns)
	assert.Equal(t, 1, snap.Completed)

	h.RunFinished("grid-1", errors.New("no bars"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, 1, body.Failed)
	assert.Equal(t, []string{"grid-1: no bars"}, body.Errors)
}
