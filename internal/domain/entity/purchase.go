package entity

import (
	"time"

	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// PurchaseStatus estado del documento de compra.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseValidated PurchaseStatus = "validated"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchasePending:   {PurchaseValidated, PurchaseCancelled},
	PurchaseValidated: {PurchaseCancelled},
}

// PurchaseDocument factura de proveedor: al validar ingresa stock al costo de compra.
type PurchaseDocument struct {
	ID             string
	OrganizationID string
	SupplierID     string
	Number         string
	Status         PurchaseStatus
	Currency       string
	ExchangeRate   decimal.Decimal
	Taxes          money.TaxConfig
	Totals         money.DocumentTotals
	Lines          []DocumentLine
	CreditIssued   decimal.Decimal
	Version        int
	Date           time.Time
	ValidatedAt    *time.Time
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanTransition indica si el estado destino es alcanzable desde el actual.
func (p *PurchaseDocument) CanTransition(to PurchaseStatus) bool {
	for _, s := range purchaseTransitions[p.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// CreditableAmount monto máximo que aún puede emitirse en notas de crédito de proveedor.
func (p *PurchaseDocument) CreditableAmount() decimal.Decimal {
	return p.Totals.TotalTTC.Sub(p.CreditIssued)
}
