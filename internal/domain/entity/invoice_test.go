package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

func TestDerivePaymentStatus(t *testing.T) {
	assert.Equal(t, entity.PaymentUnpaid, entity.DerivePaymentStatus(d("0"), d("100")))
	assert.Equal(t, entity.PaymentPartial, entity.DerivePaymentStatus(d("50"), d("100")))
	assert.Equal(t, entity.PaymentPaid, entity.DerivePaymentStatus(d("99.999"), d("100")))
	assert.Equal(t, entity.PaymentPaid, entity.DerivePaymentStatus(d("100"), d("100")))
}

func TestInvoice_Transiciones(t *testing.T) {
	inv := &entity.Invoice{Status: entity.InvoiceCreated}
	assert.True(t, inv.CanTransition(entity.InvoiceDraft))
	assert.True(t, inv.CanTransition(entity.InvoiceValidated))
	assert.False(t, inv.CanTransition(entity.InvoiceProductReturnTotal))

	inv.Status = entity.InvoiceValidated
	assert.True(t, inv.CanTransition(entity.InvoiceCancelled))
	assert.True(t, inv.CanTransition(entity.InvoiceProductReturnTotal))
	assert.False(t, inv.CanTransition(entity.InvoiceDraft))

	inv.Status = entity.InvoiceCancelled
	assert.False(t, inv.CanTransition(entity.InvoiceValidated))
}

func TestFreezeTotals(t *testing.T) {
	lines := []entity.DocumentLine{
		{ID: "l1", Quantity: d("2"), UnitPriceHT: d("100"), DiscountPercent: d("10"), VATRate: d("19")},
	}
	tot, err := entity.FreezeTotals(lines, money.TaxConfig{})
	require.NoError(t, err)
	assert.Equal(t, "180.000", lines[0].LineTotalHT.StringFixed(3))
	assert.Equal(t, "34.200", lines[0].LineTotalVAT.StringFixed(3))
	assert.Equal(t, "214.200", lines[0].LineTotalTTC.StringFixed(3))
	assert.Equal(t, 1, lines[0].Position)
	assert.Equal(t, "214.200", tot.NetPayable.StringFixed(3))

	_, err = entity.FreezeTotals([]entity.DocumentLine{{Quantity: d("0"), UnitPriceHT: d("1")}}, money.TaxConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProduct_CheckInvariants(t *testing.T) {
	p := &entity.Product{ID: "p1", CurrentStock: d("5"), ReservedStock: d("5")}
	assert.NoError(t, p.CheckInvariants())

	p.ReservedStock = d("6")
	assert.ErrorIs(t, p.CheckInvariants(), domain.ErrInvariantViolation)

	p.AllowOutOfStockSale = true
	assert.NoError(t, p.CheckInvariants())

	p.CurrentStock = d("-1")
	assert.ErrorIs(t, p.CheckInvariants(), domain.ErrInvariantViolation)
}

func TestSourceRef_Validate(t *testing.T) {
	assert.NoError(t, entity.InvoiceRef("inv-1").Validate())
	assert.ErrorIs(t, entity.SourceRef{Kind: "x", ID: "1"}.Validate(), domain.ErrInvalidInput)
	assert.ErrorIs(t, entity.PurchaseRef("").Validate(), domain.ErrInvalidInput)
	assert.True(t, entity.SourceRef{}.IsZero())
	assert.Equal(t, "invoice:inv-1", entity.InvoiceRef("inv-1").String())
}
