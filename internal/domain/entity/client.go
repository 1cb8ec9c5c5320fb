package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client cliente de la organización. AccountBalance es caché del último balance_after
// de su secuencia de movimientos de cuenta (positivo = el cliente debe).
type Client struct {
	ID             string
	OrganizationID string
	Name           string
	TaxID          string
	Email          string
	AccountBalance decimal.Decimal
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
