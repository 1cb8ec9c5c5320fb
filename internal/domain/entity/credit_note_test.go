package entity_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validatedNote(t *testing.T, amount string) *entity.CreditNote {
	t.Helper()
	cn := &entity.CreditNote{ID: "cn-1", OrganizationID: "org-1", Source: entity.InvoiceRef("inv-1")}
	require.NoError(t, cn.Issue(d(amount), now))
	require.NoError(t, cn.Validate(now))
	return cn
}

func TestCreditNote_Issue(t *testing.T) {
	cn := &entity.CreditNote{ID: "cn-1"}
	require.NoError(t, cn.Issue(d("100"), now))

	assert.Equal(t, entity.CreditDraft, cn.Status)
	assert.True(t, cn.Generated.Equal(d("100")))
	assert.True(t, cn.Available.Equal(d("100")))
	assert.True(t, cn.Used.IsZero())
	assert.True(t, cn.Blocked.IsZero())

	err := (&entity.CreditNote{}).Issue(d("0"), now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = (&entity.CreditNote{}).Issue(d("1.0001"), now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreditNote_DraftNoOperable(t *testing.T) {
	cn := &entity.CreditNote{ID: "cn-1"}
	require.NoError(t, cn.Issue(d("100"), now))

	assert.ErrorIs(t, cn.Block(d("10"), now), domain.ErrInvalidTransition)
	assert.ErrorIs(t, cn.Apply(d("10"), false, now), domain.ErrInvalidTransition)
}

func TestCreditNote_BlockUnblockApply(t *testing.T) {
	cn := validatedNote(t, "100")

	require.NoError(t, cn.Block(d("30"), now))
	assert.Equal(t, entity.CreditBlocked, cn.Status)
	assert.True(t, cn.Available.Equal(d("70")))
	assert.True(t, cn.Blocked.Equal(d("30")))

	assert.ErrorIs(t, cn.Block(d("70.001"), now), domain.ErrInsufficientAvailableCredit)
	err := cn.Unblock(d("31"), now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrInsufficientAvailableCredit)

	require.NoError(t, cn.Unblock(d("30"), now))
	assert.Equal(t, entity.CreditUnblocked, cn.Status)

	require.NoError(t, cn.Apply(d("40"), false, now))
	assert.Equal(t, entity.CreditPartiallyApplied, cn.Status)
	assert.True(t, cn.Used.Equal(d("40")))

	require.NoError(t, cn.Block(d("60"), now))
	require.NoError(t, cn.Apply(d("60"), true, now))
	assert.Equal(t, entity.CreditSettled, cn.Status)
	assert.True(t, cn.Available.IsZero())
	assert.True(t, cn.Blocked.IsZero())
	require.NoError(t, cn.CheckConservation())

	assert.ErrorIs(t, cn.Apply(d("1"), false, now), domain.ErrInvalidTransition, "settled es terminal")
}

func TestCreditNote_ApplyExcedeDisponible(t *testing.T) {
	cn := validatedNote(t, "50")
	err := cn.Apply(d("50.001"), false, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailableCredit)
	assert.True(t, cn.Available.Equal(d("50")), "el estado no cambia ante un rechazo")

	require.NoError(t, cn.Block(d("10"), now))
	assert.ErrorIs(t, cn.Apply(d("11"), true, now), domain.ErrInvalidInput)
}

func TestCreditNote_Cancel(t *testing.T) {
	t.Run("desde validated sin movimientos", func(t *testing.T) {
		cn := validatedNote(t, "80")
		require.NoError(t, cn.Cancel(now))
		assert.Equal(t, entity.CreditCancelled, cn.Status)
		assert.True(t, cn.Generated.IsZero())
		assert.True(t, cn.Available.IsZero())
	})
	t.Run("con bloqueo no se puede", func(t *testing.T) {
		cn := validatedNote(t, "80")
		require.NoError(t, cn.Block(d("1"), now))
		assert.ErrorIs(t, cn.Cancel(now), domain.ErrInvalidTransition)
	})
	t.Run("desde unblocked no se puede", func(t *testing.T) {
		cn := validatedNote(t, "80")
		require.NoError(t, cn.Block(d("5"), now))
		require.NoError(t, cn.Unblock(d("5"), now))
		require.Equal(t, entity.CreditUnblocked, cn.Status)
		assert.ErrorIs(t, cn.Cancel(now), domain.ErrInvalidTransition)
		assert.Equal(t, "80", cn.Available.String())
	})
	t.Run("con uso no se puede", func(t *testing.T) {
		cn := validatedNote(t, "80")
		require.NoError(t, cn.Apply(d("1"), false, now))
		assert.ErrorIs(t, cn.Cancel(now), domain.ErrInvalidTransition)
	})
}

// La conservación se mantiene tras cualquier secuencia de block/unblock/apply.
func TestCreditNote_ConservacionSecuenciaAleatoria(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		cn := validatedNote(t, "1000")
		for step := 0; step < 40; step++ {
			amount := decimal.NewFromInt(int64(rng.Intn(200) + 1))
			switch rng.Intn(4) {
			case 0:
				_ = cn.Block(amount, now)
			case 1:
				_ = cn.Unblock(amount, now)
			case 2:
				_ = cn.Apply(amount, false, now)
			case 3:
				_ = cn.Apply(amount, true, now)
			}
			require.NoError(t, cn.CheckConservation(), "run %d paso %d", run, step)
			assert.True(t, cn.Generated.Equal(d("1000")))
		}
	}
}

func TestCreditNote_CheckConservationDetectaCorrupcion(t *testing.T) {
	cn := validatedNote(t, "10")
	cn.Available = d("11")
	assert.ErrorIs(t, cn.CheckConservation(), domain.ErrInvariantViolation)
}
