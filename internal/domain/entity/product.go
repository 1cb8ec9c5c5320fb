package entity

import (
	"time"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Product representa un producto con su stock físico y reservado.
// ReservedStock es caché de Σ(reservas activas); Reconcile lo verifica contra las reservas.
type Product struct {
	ID                  string
	OrganizationID      string
	SKU                 string // código único por organización
	Name                string
	Price               decimal.Decimal // precio de venta por defecto
	Cost                decimal.Decimal // costo promedio ponderado
	VATRate             decimal.Decimal // porcentaje por defecto
	CurrentStock        decimal.Decimal
	ReservedStock       decimal.Decimal
	UnlimitedStock      bool // servicios: no se controla stock físico
	AllowOutOfStockSale bool // permite reservar por encima del disponible
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AvailableStock stock libre para nuevas reservas.
func (p *Product) AvailableStock() decimal.Decimal {
	return p.CurrentStock.Sub(p.ReservedStock)
}

// CanOverReserve indica si reserved_stock puede superar current_stock.
func (p *Product) CanOverReserve() bool {
	return p.AllowOutOfStockSale || p.UnlimitedStock
}

// CheckInvariants verifica current_stock >= 0 y reserved_stock <= current_stock.
func (p *Product) CheckInvariants() error {
	if p.CurrentStock.IsNegative() {
		return domain.Invariant("producto %s: current_stock negativo (%s)", p.ID, p.CurrentStock)
	}
	if p.ReservedStock.IsNegative() {
		return domain.Invariant("producto %s: reserved_stock negativo (%s)", p.ID, p.ReservedStock)
	}
	if !p.CanOverReserve() && p.ReservedStock.GreaterThan(p.CurrentStock) {
		return domain.Invariant("producto %s: reserved_stock %s > current_stock %s", p.ID, p.ReservedStock, p.CurrentStock)
	}
	return nil
}
