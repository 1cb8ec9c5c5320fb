package account_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/infrastructure/memory"
	"github.com/jhoicas/docledger/pkg/logger"
)

const org = "org-1"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*account.AccountLedger, *memory.Store, *entity.Client) {
	t.Helper()
	store := memory.NewStore()
	l := account.NewAccountLedger(store, fixedClock{time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}, logger.Nop(), nil)
	c, err := l.CreateClient(context.Background(), org, account.CreateClientInput{Name: "ACME"})
	require.NoError(t, err)
	return l, store, c
}

func appendAmount(t *testing.T, l *account.AccountLedger, clientID, amount string) *entity.ClientAccountMovement {
	t.Helper()
	m, err := l.Append(context.Background(), org, account.AppendInput{
		ClientID: clientID, Amount: d(amount), Source: entity.ManualRef("ajuste"),
	})
	require.NoError(t, err)
	return m
}

func TestAppend_BalanceAcumulado(t *testing.T) {
	l, _, c := setup(t)

	m1 := appendAmount(t, l, c.ID, "100")
	m2 := appendAmount(t, l, c.ID, "-30.5")
	m3 := appendAmount(t, l, c.ID, "0.125")

	assert.Equal(t, "100.000", m1.BalanceAfter.StringFixed(3))
	assert.Equal(t, "69.500", m2.BalanceAfter.StringFixed(3))
	assert.Equal(t, "69.625", m3.BalanceAfter.StringFixed(3))
	assert.Equal(t, []int64{1, 2, 3}, []int64{m1.Sequence, m2.Sequence, m3.Sequence})

	bal, err := l.Balance(context.Background(), org, c.ID)
	require.NoError(t, err)
	assert.True(t, bal.Equal(m3.BalanceAfter))

	rec, err := l.Reconcile(context.Background(), org, c.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, 3, rec.Movements)
}

func TestAppend_Validacion(t *testing.T) {
	l, _, c := setup(t)
	cases := []account.AppendInput{
		{ClientID: c.ID, Amount: d("0"), Source: entity.ManualRef("x")},
		{ClientID: c.ID, Amount: d("1.0001"), Source: entity.ManualRef("x")},
		{ClientID: c.ID, Amount: d("1")},
		{Amount: d("1"), Source: entity.ManualRef("x")},
	}
	for _, in := range cases {
		_, err := l.Append(context.Background(), org, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestAppend_Concurrente(t *testing.T) {
	l, _, c := setup(t)
	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Append(context.Background(), org, account.AppendInput{
				ClientID: c.ID, Amount: d("2.5"), Source: entity.ManualRef("x"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := l.Balance(context.Background(), org, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.000", bal.StringFixed(3))
	rec, err := l.Reconcile(context.Background(), org, c.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestCompensate_SumaCero(t *testing.T) {
	l, _, c := setup(t)
	orig := appendAmount(t, l, c.ID, "214.2")

	comp, err := l.Compensate(context.Background(), org, orig.ID)
	require.NoError(t, err)
	assert.True(t, comp.Amount.Add(orig.Amount).IsZero())
	assert.Equal(t, orig.ID, comp.ReferenceNumber)
	assert.True(t, comp.IsCompensation())
	assert.True(t, comp.BalanceAfter.IsZero())

	_, err = l.Compensate(context.Background(), org, orig.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	_, err = l.Compensate(context.Background(), org, comp.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAppend_TenantCruzado(t *testing.T) {
	l, _, c := setup(t)
	_, err := l.Append(context.Background(), "org-2", account.AppendInput{
		ClientID: c.ID, Amount: d("1"), Source: entity.ManualRef("x"),
	})
	assert.ErrorIs(t, err, domain.ErrCrossTenantAccess)

	_, err = l.Balance(context.Background(), "org-2", c.ID)
	assert.ErrorIs(t, err, domain.ErrCrossTenantAccess)
}

func TestReconcile_DetectaSaldoCorrupto(t *testing.T) {
	l, store, c := setup(t)
	appendAmount(t, l, c.ID, "50")

	require.NoError(t, store.Run(context.Background(), func(r ports.Repos) error {
		cl, err := r.Clients.GetByID(context.Background(), c.ID)
		require.NoError(t, err)
		cl.AccountBalance = d("49")
		return r.Clients.Update(context.Background(), cl)
	}))

	rec, err := l.Reconcile(context.Background(), org, c.ID)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.False(t, rec.Consistent)

	_, err = l.Append(context.Background(), org, account.AppendInput{ClientID: c.ID, Amount: d("1"), Source: entity.ManualRef("x")})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation, "el saldo en caché se verifica en cada escritura")
}
