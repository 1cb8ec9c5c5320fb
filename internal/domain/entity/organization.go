package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la organización.
const (
	OrganizationActive    = "active"
	OrganizationSuspended = "suspended"
)

// Organization representa el tenant: moneda de referencia y timbre fiscal configurado.
type Organization struct {
	ID                string
	Name              string
	TaxID             string
	ReferenceCurrency string
	StampDutyAmount   decimal.Decimal // monto fijo por factura con timbre habilitado
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive indica si la organización puede mutar documentos.
func (o *Organization) IsActive() bool {
	return o.Status == "" || o.Status == OrganizationActive
}
