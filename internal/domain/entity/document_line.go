package entity

import (
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// DocumentLine línea de un documento monetario (factura, compra o nota de crédito).
// Los totales son derivados: solo FreezeTotals los escribe.
type DocumentLine struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id,omitempty"`
	SourceLineID    string          `json:"source_line_id,omitempty"` // nota de crédito: línea del documento origen que revierte
	ReservationID   string          `json:"reservation_id,omitempty"` // factura: reserva a consumir al validar
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPriceHT     decimal.Decimal `json:"unit_price_ht"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	LineTotalHT     decimal.Decimal `json:"line_total_ht"`
	LineTotalVAT    decimal.Decimal `json:"line_total_vat"`
	LineTotalTTC    decimal.Decimal `json:"line_total_ttc"`
	LineDiscount    decimal.Decimal `json:"line_discount"`
	Position        int             `json:"position"`
}

// Input datos de la línea para la calculadora.
func (l *DocumentLine) Input() money.LineInput {
	return money.LineInput{
		Quantity:        l.Quantity,
		UnitPriceHT:     l.UnitPriceHT,
		DiscountPercent: l.DiscountPercent,
		VATRate:         l.VATRate,
	}
}

// FreezeTotals recalcula cada línea y los totales del documento con la calculadora.
func FreezeTotals(lines []DocumentLine, cfg money.TaxConfig) (money.DocumentTotals, error) {
	inputs := make([]money.LineInput, len(lines))
	for i := range lines {
		if !lines[i].Quantity.IsPositive() {
			return money.DocumentTotals{}, domain.Validation("línea %d: cantidad debe ser positiva", i+1)
		}
		lt, err := money.ComputeLine(lines[i].Input())
		if err != nil {
			return money.DocumentTotals{}, err
		}
		lines[i].LineTotalHT = lt.TotalHT
		lines[i].LineTotalVAT = lt.TotalVAT
		lines[i].LineTotalTTC = lt.TotalTTC
		lines[i].LineDiscount = lt.Discount
		lines[i].Position = i + 1
		inputs[i] = lines[i].Input()
	}
	return money.ComputeDocumentTotals(inputs, cfg)
}

// FindLine busca una línea por ID.
func FindLine(lines []DocumentLine, id string) *DocumentLine {
	for i := range lines {
		if lines[i].ID == id {
			return &lines[i]
		}
	}
	return nil
}
