package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/infrastructure/metrics"
)

func TestObserveOperation_CuentaPorResultado(t *testing.T) {
	p := metrics.NewPrometheus()
	p.ObserveOperation("stock.reserve", ports.OutcomeOK, 3*time.Millisecond)
	p.ObserveOperation("stock.reserve", ports.OutcomeRejected, time.Millisecond)
	p.ObserveOperation("credit.apply", ports.OutcomeDefect, time.Millisecond)
	p.ObserveOperation("billing.get", ports.OutcomeSecurity, time.Millisecond)
	p.ObserveRetry(1)
	p.ObserveRetry(1)

	families, err := p.Registry().Gather()
	require.NoError(t, err)
	byName := map[string]int{}
	for _, mf := range families {
		byName[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 4, byName["docledger_operations_total"])
	assert.Equal(t, 3, byName["docledger_operation_duration_seconds"])
	assert.Equal(t, 1, byName["docledger_tx_retries_total"])

	n, err := testutil.GatherAndCount(p.Registry(), "docledger_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestHandler_ExponeMetricas(t *testing.T) {
	p := metrics.NewPrometheus()
	p.ObserveOperation("account.append", ports.OutcomeConflict, time.Millisecond)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `docledger_operations_total{op="account.append",outcome="conflict"} 1`)
	assert.Contains(t, string(body), "docledger_invariant_violations_total 0")
}
