package entity

import (
	"time"

	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de la factura.
type InvoiceStatus string

const (
	InvoiceCreated            InvoiceStatus = "created"
	InvoiceDraft              InvoiceStatus = "draft"
	InvoiceValidated          InvoiceStatus = "validated"
	InvoiceCancelled          InvoiceStatus = "cancelled"
	InvoiceProductReturnTotal InvoiceStatus = "product_return_total"
)

// PaymentStatus estado de pago, siempre derivado de PaidAmount y NetPayable.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceCreated:   {InvoiceDraft, InvoiceValidated, InvoiceCancelled},
	InvoiceDraft:     {InvoiceValidated, InvoiceCancelled},
	InvoiceValidated: {InvoiceCancelled, InvoiceProductReturnTotal},
}

// Invoice factura de venta. Tras la validación es inmutable salvo PaidAmount/PaymentStatus
// (pagos) y TotalCredited/CreditIssued (libro de créditos).
type Invoice struct {
	ID              string
	OrganizationID  string
	ClientID        string
	Number          string
	Status          InvoiceStatus
	Currency        string
	ExchangeRate    decimal.Decimal // hacia la moneda de referencia, congelada al crear
	Taxes           money.TaxConfig
	Totals          money.DocumentTotals
	Lines           []DocumentLine
	PaidAmount      decimal.Decimal
	PaymentStatus   PaymentStatus
	CreditIssued    decimal.Decimal // Σ generated de notas de crédito no canceladas sobre esta factura
	DebitMovementID string          // movimiento de cuenta escrito al validar
	Version         int
	Date            time.Time
	ValidatedAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanTransition indica si el estado destino es alcanzable desde el actual.
func (inv *Invoice) CanTransition(to InvoiceStatus) bool {
	for _, s := range invoiceTransitions[inv.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// IsEditable indica si la factura aún no fue validada.
func (inv *Invoice) IsEditable() bool {
	return inv.Status == InvoiceCreated || inv.Status == InvoiceDraft
}

// RemainingDue saldo pendiente de la factura.
func (inv *Invoice) RemainingDue() decimal.Decimal {
	return inv.Totals.NetPayable.Sub(inv.PaidAmount)
}

// CreditableAmount monto máximo que aún puede emitirse en notas de crédito.
func (inv *Invoice) CreditableAmount() decimal.Decimal {
	return inv.Totals.TotalTTC.Sub(inv.CreditIssued)
}

// RefreshPaymentStatus recalcula el estado de pago derivado.
func (inv *Invoice) RefreshPaymentStatus() {
	inv.PaymentStatus = DerivePaymentStatus(inv.PaidAmount, inv.Totals.NetPayable)
}

// DerivePaymentStatus unpaid si no hay pagos, paid si cubre el neto (epsilon 0.001), si no partial.
func DerivePaymentStatus(paid, netPayable decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return PaymentUnpaid
	case money.Settled(paid, netPayable):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}
