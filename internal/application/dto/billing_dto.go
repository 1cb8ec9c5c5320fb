package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

// LineRequest línea de documento. unit_price_ht cero toma el precio del producto; vat_rate nulo su tasa.
type LineRequest struct {
	ProductID       string           `json:"product_id"`
	ReservationID   string           `json:"reservation_id"`
	Description     string           `json:"description" validate:"max=500"`
	Quantity        decimal.Decimal  `json:"quantity" validate:"gt=0"`
	UnitPriceHT     decimal.Decimal  `json:"unit_price_ht" validate:"gte=0"`
	DiscountPercent decimal.Decimal  `json:"discount_percent" validate:"gte=0,lte=100"`
	VATRate         *decimal.Decimal `json:"vat_rate" validate:"omitempty,gte=0,lte=100"`
}

// CustomTaxRequest impuesto adicional configurado en el documento.
type CustomTaxRequest struct {
	Code             string          `json:"code" validate:"required,max=30"`
	Rate             decimal.Decimal `json:"rate" validate:"gte=0"`
	FixedAmount      decimal.Decimal `json:"fixed_amount" validate:"gte=0"`
	Timing           string          `json:"timing" validate:"required,oneof=before_vat after_vat on_payment"`
	ApplicationOrder int             `json:"application_order" validate:"gte=0"`
}

// TaxRequest configuración fiscal del documento.
type TaxRequest struct {
	StampDuty          bool               `json:"stamp_duty"`
	WithholdingApplied bool               `json:"withholding_applied"`
	WithholdingRate    decimal.Decimal    `json:"withholding_rate" validate:"gte=0,lte=100"`
	CustomTaxes        []CustomTaxRequest `json:"custom_taxes" validate:"dive"`
}

func (r TaxRequest) toInput() billing.TaxInput {
	in := billing.TaxInput{
		StampDuty:          r.StampDuty,
		WithholdingApplied: r.WithholdingApplied,
		WithholdingRate:    r.WithholdingRate,
	}
	for _, t := range r.CustomTaxes {
		in.CustomTaxes = append(in.CustomTaxes, money.CustomTax{
			Code:             t.Code,
			Rate:             t.Rate,
			FixedAmount:      t.FixedAmount,
			Timing:           money.TaxTiming(t.Timing),
			ApplicationOrder: t.ApplicationOrder,
		})
	}
	return in
}

func toLineInputs(lines []LineRequest) []billing.LineInput {
	out := make([]billing.LineInput, len(lines))
	for i, l := range lines {
		out[i] = billing.LineInput{
			ProductID:       l.ProductID,
			ReservationID:   l.ReservationID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPriceHT:     l.UnitPriceHT,
			DiscountPercent: l.DiscountPercent,
			VATRate:         l.VATRate,
		}
	}
	return out
}

// CreateInvoiceRequest body para POST /api/v1/invoices. Currency vacío usa la moneda de referencia.
type CreateInvoiceRequest struct {
	ClientID     string          `json:"client_id" validate:"required"`
	Number       string          `json:"number" validate:"max=50"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" validate:"gte=0"`
	Date         *time.Time      `json:"date"`
	Status       string          `json:"status" validate:"omitempty,oneof=created draft"`
	Taxes        TaxRequest      `json:"taxes"`
	Lines        []LineRequest   `json:"lines" validate:"required,min=1,dive"`
}

func (r CreateInvoiceRequest) ToInput() billing.CreateInvoiceInput {
	return billing.CreateInvoiceInput{
		ClientID:     r.ClientID,
		Number:       r.Number,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Date:         r.Date,
		Status:       entity.InvoiceStatus(r.Status),
		Taxes:        r.Taxes.toInput(),
		Lines:        toLineInputs(r.Lines),
	}
}

// InvoiceResponse factura con totales congelados y líneas.
type InvoiceResponse struct {
	ID              string                `json:"id"`
	OrganizationID  string                `json:"organization_id"`
	ClientID        string                `json:"client_id"`
	Number          string                `json:"number"`
	Status          string                `json:"status"`
	Currency        string                `json:"currency"`
	ExchangeRate    decimal.Decimal       `json:"exchange_rate"`
	Taxes           money.TaxConfig       `json:"taxes"`
	Totals          money.DocumentTotals  `json:"totals"`
	Lines           []entity.DocumentLine `json:"lines"`
	PaidAmount      decimal.Decimal       `json:"paid_amount"`
	RemainingDue    decimal.Decimal       `json:"remaining_due"`
	PaymentStatus   string                `json:"payment_status"`
	CreditIssued    decimal.Decimal       `json:"credit_issued"`
	DebitMovementID string                `json:"debit_movement_id,omitempty"`
	Version         int                   `json:"version"`
	Date            time.Time             `json:"date"`
	ValidatedAt     *time.Time            `json:"validated_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func ToInvoiceResponse(inv *entity.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:              inv.ID,
		OrganizationID:  inv.OrganizationID,
		ClientID:        inv.ClientID,
		Number:          inv.Number,
		Status:          string(inv.Status),
		Currency:        inv.Currency,
		ExchangeRate:    inv.ExchangeRate,
		Taxes:           inv.Taxes,
		Totals:          inv.Totals,
		Lines:           inv.Lines,
		PaidAmount:      inv.PaidAmount,
		RemainingDue:    inv.RemainingDue(),
		PaymentStatus:   string(inv.PaymentStatus),
		CreditIssued:    inv.CreditIssued,
		DebitMovementID: inv.DebitMovementID,
		Version:         inv.Version,
		Date:            inv.Date,
		ValidatedAt:     inv.ValidatedAt,
		CancelledAt:     inv.CancelledAt,
		CreatedAt:       inv.CreatedAt,
	}
}

// TransitionRequest cambio de estado de un documento.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,max=30"`
}

// PaymentRequest body para POST /api/v1/invoices/:id/payments, en moneda de la factura.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Method    string          `json:"method" validate:"max=50"`
	Reference string          `json:"reference" validate:"max=100"`
	PaidAt    *time.Time      `json:"paid_at"`
}

func (r PaymentRequest) ToInput() billing.PaymentInput {
	return billing.PaymentInput{Amount: r.Amount, Method: r.Method, Reference: r.Reference, PaidAt: r.PaidAt}
}

// PaymentResponse pago registrado.
type PaymentResponse struct {
	ID                string          `json:"id"`
	InvoiceID         string          `json:"invoice_id"`
	ClientID          string          `json:"client_id"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method,omitempty"`
	Reference         string          `json:"reference,omitempty"`
	AccountMovementID string          `json:"account_movement_id"`
	PaidAt            time.Time       `json:"paid_at"`
}

func ToPaymentResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		InvoiceID:         p.InvoiceID,
		ClientID:          p.ClientID,
		Amount:            p.Amount,
		Method:            p.Method,
		Reference:         p.Reference,
		AccountMovementID: p.AccountMovementID,
		PaidAt:            p.PaidAt,
	}
}

// RecordPaymentResponse pago y factura actualizada.
type RecordPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// CreatePurchaseRequest body para POST /api/v1/purchases. Toda línea referencia un producto.
type CreatePurchaseRequest struct {
	SupplierID   string          `json:"supplier_id" validate:"required"`
	Number       string          `json:"number" validate:"max=50"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" validate:"gte=0"`
	Date         *time.Time      `json:"date"`
	Taxes        TaxRequest      `json:"taxes"`
	Lines        []LineRequest   `json:"lines" validate:"required,min=1,dive"`
}

func (r CreatePurchaseRequest) ToInput() billing.CreatePurchaseInput {
	return billing.CreatePurchaseInput{
		SupplierID:   r.SupplierID,
		Number:       r.Number,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Date:         r.Date,
		Taxes:        r.Taxes.toInput(),
		Lines:        toLineInputs(r.Lines),
	}
}

// PurchaseResponse documento de compra.
type PurchaseResponse struct {
	ID             string                `json:"id"`
	OrganizationID string                `json:"organization_id"`
	SupplierID     string                `json:"supplier_id"`
	Number         string                `json:"number"`
	Status         string                `json:"status"`
	Currency       string                `json:"currency"`
	ExchangeRate   decimal.Decimal       `json:"exchange_rate"`
	Taxes          money.TaxConfig       `json:"taxes"`
	Totals         money.DocumentTotals  `json:"totals"`
	Lines          []entity.DocumentLine `json:"lines"`
	CreditIssued   decimal.Decimal       `json:"credit_issued"`
	Version        int                   `json:"version"`
	Date           time.Time             `json:"date"`
	ValidatedAt    *time.Time            `json:"validated_at,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
}

func ToPurchaseResponse(p *entity.PurchaseDocument) PurchaseResponse {
	return PurchaseResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		SupplierID:     p.SupplierID,
		Number:         p.Number,
		Status:         string(p.Status),
		Currency:       p.Currency,
		ExchangeRate:   p.ExchangeRate,
		Taxes:          p.Taxes,
		Totals:         p.Totals,
		Lines:          p.Lines,
		CreditIssued:   p.CreditIssued,
		Version:        p.Version,
		Date:           p.Date,
		ValidatedAt:    p.ValidatedAt,
		CancelledAt:    p.CancelledAt,
	}
}

// DocumentResponse resultado de una transición genérica: solo uno viene informado.
type DocumentResponse struct {
	Invoice    *InvoiceResponse    `json:"invoice,omitempty"`
	Purchase   *PurchaseResponse   `json:"purchase_document,omitempty"`
	CreditNote *CreditNoteResponse `json:"credit_note,omitempty"`
}

func ToDocumentResponse(d *billing.Document) DocumentResponse {
	var out DocumentResponse
	switch {
	case d.Invoice != nil:
		r := ToInvoiceResponse(d.Invoice)
		out.Invoice = &r
	case d.Purchase != nil:
		r := ToPurchaseResponse(d.Purchase)
		out.Purchase = &r
	case d.CreditNote != nil:
		r := ToCreditNoteResponse(d.CreditNote)
		out.CreditNote = &r
	}
	return out
}
