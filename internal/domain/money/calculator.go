// Package money implementa el cálculo monetario de documentos (servicio de dominio puro).
//
// Todos los montos se redondean a 3 decimales (subunidad de la moneda de la organización)
// con redondeo half-away-from-zero, una vez por línea y otra vez en los agregados del
// documento. El doble redondeo reproduce los documentos en papel presentados ante la
// autoridad tributaria y debe mantenerse tal cual.
package money

import (
	"sort"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Scale número de decimales de los montos monetarios.
const Scale int32 = 3

var (
	// Epsilon tolerancia de redondeo para comparar pagos contra el neto a pagar.
	Epsilon = decimal.New(1, -Scale)
	hundred = decimal.NewFromInt(100)
)

// RoundMoney redondea a 3 decimales, half-away-from-zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// LineInput datos de entrada de una línea.
type LineInput struct {
	Quantity        decimal.Decimal
	UnitPriceHT     decimal.Decimal
	DiscountPercent decimal.Decimal
	VATRate         decimal.Decimal // porcentaje: 19 = 19%
}

// LineTotals totales derivados de una línea.
type LineTotals struct {
	TotalHT  decimal.Decimal
	TotalVAT decimal.Decimal
	TotalTTC decimal.Decimal
	Discount decimal.Decimal
}

// TaxTiming momento de aplicación de un impuesto adicional.
type TaxTiming string

const (
	TaxBeforeVAT TaxTiming = "before_vat"
	TaxAfterVAT  TaxTiming = "after_vat"
	TaxOnPayment TaxTiming = "on_payment" // informativo: se cobra al pagar, no suma al neto
)

// CustomTax impuesto adicional configurado por la organización.
// Si Rate es cero se usa FixedAmount.
type CustomTax struct {
	Code             string          `json:"code"`
	Rate             decimal.Decimal `json:"rate"`
	FixedAmount      decimal.Decimal `json:"fixed_amount"`
	Timing           TaxTiming       `json:"timing"`
	ApplicationOrder int             `json:"application_order"`
}

// TaxConfig configuración fiscal del documento.
type TaxConfig struct {
	StampDutyEnabled   bool            `json:"stamp_duty_enabled"`
	StampDutyAmount    decimal.Decimal `json:"stamp_duty_amount"` // timbre fiscal, monto fijo
	WithholdingApplied bool            `json:"withholding_applied"`
	WithholdingRate    decimal.Decimal `json:"withholding_rate"` // porcentaje sobre total_ttc
	CustomTaxes        []CustomTax     `json:"custom_taxes,omitempty"`
}

// CustomTaxAmount resultado de aplicar un impuesto adicional.
type CustomTaxAmount struct {
	Code   string          `json:"code"`
	Timing TaxTiming       `json:"timing"`
	Base   decimal.Decimal `json:"base"`
	Amount decimal.Decimal `json:"amount"`
}

// DocumentTotals totales congelados de un documento.
type DocumentTotals struct {
	SubtotalHT        decimal.Decimal   `json:"subtotal_ht"`
	TotalVAT          decimal.Decimal   `json:"total_vat"`
	TotalDiscount     decimal.Decimal   `json:"total_discount"`
	TotalTTC          decimal.Decimal   `json:"total_ttc"`
	CustomTaxes       []CustomTaxAmount `json:"custom_taxes,omitempty"`
	TotalCustomTaxes  decimal.Decimal   `json:"total_custom_taxes"`
	OnPaymentTaxes    decimal.Decimal   `json:"on_payment_taxes"`
	StampDutyAmount   decimal.Decimal   `json:"stamp_duty_amount"`
	WithholdingRate   decimal.Decimal   `json:"withholding_rate"`
	WithholdingAmount decimal.Decimal   `json:"withholding_amount"`
	TotalCredited     decimal.Decimal   `json:"total_credited"`
	NetPayable        decimal.Decimal   `json:"net_payable"`
}

// ComputeLine calcula los totales de una línea: el descuento se aplica antes del IVA.
// line_total_ht = qty * precio * (1 - descuento/100); line_total_vat = ht * iva/100.
func ComputeLine(in LineInput) (LineTotals, error) {
	if in.Quantity.IsNegative() {
		return LineTotals{}, domain.Validation("cantidad negativa")
	}
	if in.UnitPriceHT.IsNegative() {
		return LineTotals{}, domain.Validation("precio unitario negativo")
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return LineTotals{}, domain.Validation("descuento fuera de rango [0,100]")
	}
	if in.VATRate.IsNegative() {
		return LineTotals{}, domain.Validation("tasa de IVA negativa")
	}

	gross := in.Quantity.Mul(in.UnitPriceHT)
	factor := decimal.NewFromInt(1).Sub(in.DiscountPercent.Div(hundred))
	ht := RoundMoney(gross.Mul(factor))
	vat := RoundMoney(ht.Mul(in.VATRate).Div(hundred))
	return LineTotals{
		TotalHT:  ht,
		TotalVAT: vat,
		TotalTTC: ht.Add(vat),
		Discount: RoundMoney(gross).Sub(ht),
	}, nil
}

// ComputeDocumentTotals aplica la cascada fija:
//  1. suma de líneas (HT, IVA, descuento)
//  2. total_ttc = subtotal_ht + total_vat
//  3. impuestos adicionales ordenados por ApplicationOrder
//  4. timbre fiscal si está habilitado
//  5. retención (tasa% * total_ttc) si aplica
//
// El resultado no incluye crédito aplicado; ver WithCredited.
func ComputeDocumentTotals(lines []LineInput, cfg TaxConfig) (DocumentTotals, error) {
	var subtotal, vat, discount decimal.Decimal
	for _, l := range lines {
		lt, err := ComputeLine(l)
		if err != nil {
			return DocumentTotals{}, err
		}
		subtotal = subtotal.Add(lt.TotalHT)
		vat = vat.Add(lt.TotalVAT)
		discount = discount.Add(lt.Discount)
	}

	t := DocumentTotals{
		SubtotalHT:    RoundMoney(subtotal),
		TotalVAT:      RoundMoney(vat),
		TotalDiscount: RoundMoney(discount),
	}
	t.TotalTTC = t.SubtotalHT.Add(t.TotalVAT)

	taxes, err := orderedTaxes(cfg.CustomTaxes)
	if err != nil {
		return DocumentTotals{}, err
	}
	for _, tax := range taxes {
		base := t.TotalTTC
		if tax.Timing == TaxBeforeVAT {
			base = t.SubtotalHT
		}
		amount := RoundMoney(tax.FixedAmount)
		if !tax.Rate.IsZero() {
			amount = RoundMoney(base.Mul(tax.Rate).Div(hundred))
		}
		t.CustomTaxes = append(t.CustomTaxes, CustomTaxAmount{Code: tax.Code, Timing: tax.Timing, Base: base, Amount: amount})
		if tax.Timing == TaxOnPayment {
			t.OnPaymentTaxes = t.OnPaymentTaxes.Add(amount)
			continue
		}
		t.TotalCustomTaxes = t.TotalCustomTaxes.Add(amount)
	}

	if cfg.StampDutyEnabled {
		if cfg.StampDutyAmount.IsNegative() {
			return DocumentTotals{}, domain.Validation("timbre fiscal negativo")
		}
		t.StampDutyAmount = RoundMoney(cfg.StampDutyAmount)
	}

	if cfg.WithholdingApplied {
		if cfg.WithholdingRate.IsNegative() || cfg.WithholdingRate.GreaterThan(hundred) {
			return DocumentTotals{}, domain.Validation("tasa de retención fuera de rango [0,100]")
		}
		t.WithholdingRate = cfg.WithholdingRate
		t.WithholdingAmount = RoundMoney(t.TotalTTC.Mul(cfg.WithholdingRate).Div(hundred))
	}

	t.NetPayable = t.netPayable()
	return t, nil
}

// WithCredited devuelve los totales con el crédito aplicado y el neto recalculado.
func (t DocumentTotals) WithCredited(credited decimal.Decimal) DocumentTotals {
	t.TotalCredited = RoundMoney(credited)
	t.NetPayable = t.netPayable()
	return t
}

// GrossPayable neto a pagar antes de descontar créditos aplicados.
func (t DocumentTotals) GrossPayable() decimal.Decimal {
	return t.WithCredited(decimal.Zero).NetPayable
}

func (t DocumentTotals) netPayable() decimal.Decimal {
	return RoundMoney(t.TotalTTC.
		Add(t.TotalCustomTaxes).
		Add(t.StampDutyAmount).
		Sub(t.WithholdingAmount).
		Sub(t.TotalCredited))
}

// Convert convierte un monto a la moneda de referencia con la tasa congelada del documento.
func Convert(amount, exchangeRate decimal.Decimal) (decimal.Decimal, error) {
	if !exchangeRate.IsPositive() {
		return decimal.Zero, domain.Validation("tasa de cambio debe ser positiva")
	}
	return RoundMoney(amount.Mul(exchangeRate)), nil
}

// Settled indica si lo pagado cubre lo adeudado dentro de la tolerancia de redondeo.
func Settled(paid, due decimal.Decimal) bool {
	return paid.GreaterThanOrEqual(due.Sub(Epsilon))
}

func orderedTaxes(in []CustomTax) ([]CustomTax, error) {
	taxes := make([]CustomTax, len(in))
	copy(taxes, in)
	for _, tax := range taxes {
		switch tax.Timing {
		case TaxBeforeVAT, TaxAfterVAT, TaxOnPayment:
		default:
			return nil, domain.Validation("momento de impuesto desconocido %q", tax.Timing)
		}
		if tax.Rate.IsNegative() || tax.FixedAmount.IsNegative() {
			return nil, domain.Validation("impuesto %s negativo", tax.Code)
		}
	}
	sort.SliceStable(taxes, func(i, j int) bool {
		return taxes[i].ApplicationOrder < taxes[j].ApplicationOrder
	})
	return taxes, nil
}
