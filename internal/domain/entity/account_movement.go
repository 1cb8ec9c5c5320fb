package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientAccountMovement fila inmutable del libro de saldos por cliente.
// balance_after(m_i) = balance_after(m_i-1) + amount(m_i); el orden es MovementDate y luego Sequence.
type ClientAccountMovement struct {
	ID              string
	OrganizationID  string
	ClientID        string
	Amount          decimal.Decimal // en moneda de referencia; positivo = débito al cliente
	BalanceAfter    decimal.Decimal
	Source          SourceRef
	ReferenceNumber string // movimiento original que esta fila compensa
	Description     string
	MovementDate    time.Time
	Sequence        int64
	CreatedAt       time.Time
}

// IsCompensation indica si la fila corrige un movimiento anterior.
func (m *ClientAccountMovement) IsCompensation() bool {
	return m.ReferenceNumber != ""
}
