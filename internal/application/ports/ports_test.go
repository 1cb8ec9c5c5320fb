package ports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

func TestPlanLocks_OrdenaYDeduplica(t *testing.T) {
	plan, err := ports.PlanLocks(nil, []string{
		ports.ProductKey("b"), ports.ClientKey("c"), ports.ProductKey("a"), ports.ProductKey("b"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{ports.ClientKey("c"), ports.ProductKey("a"), ports.ProductKey("b")}, plan)
}

func TestPlanLocks_DocumentoAntesQueProducto(t *testing.T) {
	held := map[string]struct{}{ports.InvoiceKey("inv"): {}}
	plan, err := ports.PlanLocks(held, []string{ports.ProductKey("p"), ports.InvoiceKey("inv")})
	require.NoError(t, err)
	assert.Equal(t, []string{ports.ProductKey("p")}, plan)
}

func TestPlanLocks_FueraDeOrdenEsDefecto(t *testing.T) {
	held := map[string]struct{}{ports.ProductKey("p"): {}}
	_, err := ports.PlanLocks(held, []string{ports.InvoiceKey("inv")})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestDocumentKey(t *testing.T) {
	k, err := ports.DocumentKey(entity.PurchaseRef("p1"))
	require.NoError(t, err)
	assert.Equal(t, ports.PurchaseKey("p1"), k)

	_, err = ports.DocumentKey(entity.PaymentRef("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ─── RetryingTxRunner ──────────────────────────────────────────────────────────

type flakyRunner struct {
	failures int
	err      error
	calls    int
}

func (f *flakyRunner) Run(_ context.Context, fn func(ports.Repos) error) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return fn(ports.Repos{})
}

type retryCounter struct {
	ports.NopObserver
	retries int
}

func (r *retryCounter) ObserveRetry(int) { r.retries++ }

func TestRetryingTxRunner_ReintentaConflictos(t *testing.T) {
	inner := &flakyRunner{failures: 2, err: domain.ErrConcurrencyConflict}
	obs := &retryCounter{}
	runner := ports.NewRetryingTxRunner(inner, 3, 0, obs)

	ran := false
	err := runner.Run(context.Background(), func(ports.Repos) error { ran = true; return nil })
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 2, obs.retries)
}

func TestRetryingTxRunner_AgotaIntentos(t *testing.T) {
	inner := &flakyRunner{failures: 10, err: domain.ErrConcurrencyConflict}
	runner := ports.NewRetryingTxRunner(inner, 3, 0, nil)
	err := runner.Run(context.Background(), func(ports.Repos) error { return nil })
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingTxRunner_NoReintentaOtrosErrores(t *testing.T) {
	inner := &flakyRunner{failures: 1, err: errors.New("boom")}
	runner := ports.NewRetryingTxRunner(inner, 5, 0, nil)
	err := runner.Run(context.Background(), func(ports.Repos) error { return nil })
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)

	inner = &flakyRunner{failures: 1, err: domain.ErrCrossTenantAccess}
	runner = ports.NewRetryingTxRunner(inner, 5, 0, nil)
	assert.ErrorIs(t, runner.Run(context.Background(), func(ports.Repos) error { return nil }), domain.ErrCrossTenantAccess)
	assert.Equal(t, 1, inner.calls)
}
