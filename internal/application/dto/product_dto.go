package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// CreateProductRequest entrada para crear un producto; InitialStock se registra como movimiento.
type CreateProductRequest struct {
	SKU                 string          `json:"sku" validate:"required,min=1,max=100"`
	Name                string          `json:"name" validate:"required,min=1,max=200"`
	Price               decimal.Decimal `json:"price" validate:"gte=0"`
	Cost                decimal.Decimal `json:"cost" validate:"gte=0"`
	VATRate             decimal.Decimal `json:"vat_rate" validate:"gte=0,lte=100"`
	InitialStock        decimal.Decimal `json:"initial_stock" validate:"gte=0"`
	UnlimitedStock      bool            `json:"unlimited_stock"`
	AllowOutOfStockSale bool            `json:"allow_out_of_stock_sale"`
}

func (r CreateProductRequest) ToInput() inventory.CreateProductInput {
	return inventory.CreateProductInput{
		SKU:                 r.SKU,
		Name:                r.Name,
		Price:               r.Price,
		Cost:                r.Cost,
		VATRate:             r.VATRate,
		InitialStock:        r.InitialStock,
		UnlimitedStock:      r.UnlimitedStock,
		AllowOutOfStockSale: r.AllowOutOfStockSale,
	}
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID                  string          `json:"id"`
	OrganizationID      string          `json:"organization_id"`
	SKU                 string          `json:"sku"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	Cost                decimal.Decimal `json:"cost"`
	VATRate             decimal.Decimal `json:"vat_rate"`
	CurrentStock        decimal.Decimal `json:"current_stock"`
	ReservedStock       decimal.Decimal `json:"reserved_stock"`
	AvailableStock      decimal.Decimal `json:"available_stock"`
	UnlimitedStock      bool            `json:"unlimited_stock"`
	AllowOutOfStockSale bool            `json:"allow_out_of_stock_sale"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:                  p.ID,
		OrganizationID:      p.OrganizationID,
		SKU:                 p.SKU,
		Name:                p.Name,
		Price:               p.Price,
		Cost:                p.Cost,
		VATRate:             p.VATRate,
		CurrentStock:        p.CurrentStock,
		ReservedStock:       p.ReservedStock,
		AvailableStock:      p.AvailableStock(),
		UnlimitedStock:      p.UnlimitedStock,
		AllowOutOfStockSale: p.AllowOutOfStockSale,
		Version:             p.Version,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
