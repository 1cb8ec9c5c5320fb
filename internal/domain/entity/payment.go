package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment pago recibido contra una factura validada.
type Payment struct {
	ID                string
	OrganizationID    string
	InvoiceID         string
	ClientID          string
	Amount            decimal.Decimal // moneda de la factura
	Method            string
	Reference         string
	AccountMovementID string
	PaidAt            time.Time
	CreatedAt         time.Time
}
