package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType dirección del movimiento de stock.
type MovementType string

const (
	MovementAdd    MovementType = "add"
	MovementRemove MovementType = "remove"
)

// MovementReason categoría del movimiento (auditoría).
type MovementReason string

const (
	ReasonSale                 MovementReason = "sale"
	ReasonPurchaseReceipt      MovementReason = "purchase_receipt"
	ReasonPurchaseCancellation MovementReason = "purchase_cancellation"
	ReasonInvoiceCancellation  MovementReason = "invoice_cancellation"
	ReasonCustomerReturn       MovementReason = "customer_return"
	ReasonSupplierReturn       MovementReason = "supplier_return"
	ReasonReturnReversal       MovementReason = "return_reversal"
	ReasonManualAdjustment     MovementReason = "manual_adjustment"
)

// StockMovement fila de auditoría inmutable: solo se inserta, nunca se actualiza ni se borra.
type StockMovement struct {
	ID             string
	OrganizationID string
	ProductID      string
	MovementType   MovementType
	Quantity       decimal.Decimal // siempre positivo; la dirección la da MovementType
	PreviousStock  decimal.Decimal
	NewStock       decimal.Decimal
	UnitCost       decimal.Decimal
	Reason         MovementReason
	Source         SourceRef
	CreatedAt      time.Time
}

// SignedQuantity cantidad con signo según la dirección.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.MovementType == MovementRemove {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
