package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

// CreditLineInput cantidad a revertir de una línea del documento origen.
type CreditLineInput struct {
	SourceLineID string
	Quantity     decimal.Decimal
}

// IssueCreditInput emisión de nota de crédito. Con líneas el monto sale de ellas;
// sin líneas se usa Amount (ajustes comerciales).
type IssueCreditInput struct {
	Source entity.SourceRef
	Type   entity.CreditNoteType
	Reason string
	Amount decimal.Decimal
	Lines  []CreditLineInput
}

// ApplyCreditInput aplicación de crédito contra un documento del mismo tercero.
type ApplyCreditInput struct {
	Target      entity.SourceRef
	Amount      decimal.Decimal
	FromBlocked bool
}

// IssueCredit crea la nota en draft bajo el bloqueo del documento origen. El total emitido
// sobre el origen nunca supera su total_ttc.
func (o *Orchestrator) IssueCredit(ctx context.Context, org string, in IssueCreditInput) (*entity.CreditNote, error) {
	if !in.Source.IsDocument() {
		return nil, domain.Validation("la nota de crédito requiere una factura o documento de compra de origen")
	}
	if !in.Type.IsValid() {
		return nil, domain.Validation("tipo de nota de crédito desconocido %q", in.Type)
	}
	if in.Type == entity.CreditTypeProductReturn && len(in.Lines) == 0 {
		return nil, domain.Validation("una devolución de producto requiere líneas")
	}
	if len(in.Lines) > 0 && !in.Amount.IsZero() {
		return nil, domain.Validation("con líneas el monto se calcula; no envíe amount")
	}

	var cn *entity.CreditNote
	err := o.run(ctx, "billing.issue_credit", org, func(r ports.Repos) error {
		doc, err := lockDocument(ctx, r, org, in.Source)
		if err != nil {
			return err
		}
		if !doc.acceptsCredit() {
			return fmt.Errorf("%w: %s en estado %s no admite notas de crédito", domain.ErrInvalidTransition, in.Source, doc.status())
		}
		amount := in.Amount
		var lines []entity.DocumentLine
		if len(in.Lines) > 0 {
			lines, amount, err = creditLines(ctx, r, doc, in.Lines)
			if err != nil {
				return err
			}
		}
		cn, err = o.credit.IssueInTx(ctx, r, org, credit.IssueInput{
			Source:       in.Source,
			PartyID:      doc.party(),
			Type:         in.Type,
			Amount:       amount,
			Currency:     doc.currency(),
			ExchangeRate: doc.exchangeRate(),
			Lines:        lines,
			Reason:       in.Reason,
			Creditable:   doc.creditable(),
		})
		if err != nil {
			return err
		}
		doc.addIssued(amount)
		return doc.save(ctx, r, o.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// ValidateCredit draft -> validated. Una devolución de producto mueve stock: entrada si
// el origen es una factura, salida si es una compra. Si la devolución cubre todas las
// líneas de la factura, esta pasa a product_return_total.
func (o *Orchestrator) ValidateCredit(ctx context.Context, org, id string) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := o.run(ctx, "billing.validate_credit", org, func(r ports.Repos) error {
		var err error
		cn, err = o.credit.LockNote(ctx, r, org, id)
		if err != nil {
			return err
		}
		doc, err := lockDocument(ctx, r, org, cn.Source)
		if err != nil {
			return err
		}
		if !doc.acceptsCredit() {
			return fmt.Errorf("%w: %s en estado %s", domain.ErrInvalidTransition, cn.Source, doc.status())
		}
		if err := o.credit.ValidateInTx(ctx, r, cn); err != nil {
			return err
		}
		if cn.Type != entity.CreditTypeProductReturn {
			return nil
		}
		if err := o.moveReturnedStock(ctx, r, org, cn); err != nil {
			return err
		}
		if doc.inv == nil || doc.inv.Status == entity.InvoiceProductReturnTotal {
			return nil
		}
		full, err := fullyReturned(ctx, r, doc.inv)
		if err != nil || !full {
			return err
		}
		doc.inv.Status = entity.InvoiceProductReturnTotal
		return doc.save(ctx, r, o.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// ApplyCredit consume crédito de la nota contra un documento del mismo tercero y moneda.
// Sobre facturas reduce el neto a pagar y acredita al cliente el monto convertido.
func (o *Orchestrator) ApplyCredit(ctx context.Context, org, creditNoteID string, in ApplyCreditInput) (*entity.CreditApplication, error) {
	if !in.Target.IsDocument() {
		return nil, domain.Validation("el crédito se aplica a una factura o documento de compra")
	}
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}
	var app *entity.CreditApplication
	err := o.run(ctx, "billing.apply_credit", org, func(r ports.Repos) error {
		targetKey, err := ports.DocumentKey(in.Target)
		if err != nil {
			return err
		}
		if err := r.Locks.Lock(ctx, ports.CreditNoteKey(creditNoteID), targetKey); err != nil {
			return err
		}
		cn, err := o.credit.LockNote(ctx, r, org, creditNoteID)
		if err != nil {
			return err
		}
		target, err := lockDocument(ctx, r, org, in.Target)
		if err != nil {
			return err
		}
		switch {
		case cn.Source.Kind != in.Target.Kind:
			return domain.Validation("una nota sobre %s solo se aplica a %s", cn.Source.Kind, cn.Source.Kind)
		case cn.PartyID != target.party():
			return domain.Validation("la nota y el documento destino son de terceros distintos")
		case cn.Currency != target.currency():
			return domain.Validation("moneda de la nota %s distinta de la del destino %s", cn.Currency, target.currency())
		case !target.isValidated():
			return fmt.Errorf("%w: destino %s en estado %s", domain.ErrInvalidTransition, in.Target, target.status())
		case in.Amount.GreaterThan(target.remainingDue()):
			return domain.Validation("crédito %s supera el saldo pendiente %s", in.Amount, target.remainingDue())
		}

		app, err = o.credit.ApplyInTx(ctx, r, cn, credit.ApplyInput{
			Target:      in.Target,
			Amount:      in.Amount,
			FromBlocked: in.FromBlocked,
		})
		if err != nil {
			return err
		}
		target.addCredited(in.Amount)
		if target.inv != nil {
			amount, err := money.Convert(in.Amount, target.inv.ExchangeRate)
			if err != nil {
				return err
			}
			if amount.IsPositive() {
				_, err := o.account.AppendInTx(ctx, r, org, account.AppendInput{
					ClientID:    target.inv.ClientID,
					Amount:      amount.Neg(),
					Source:      entity.CreditNoteRef(cn.ID),
					Description: fmt.Sprintf("nota %s aplicada a %s", cn.Number, target.inv.Number),
				})
				if err != nil {
					return err
				}
			}
		}
		return target.save(ctx, r, o.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// CancelCredit anula una nota sin consumo: devuelve su monto al acreditable del origen y,
// si era una devolución validada, revierte el movimiento de stock.
func (o *Orchestrator) CancelCredit(ctx context.Context, org, id string) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := o.run(ctx, "billing.cancel_credit", org, func(r ports.Repos) error {
		var err error
		cn, err = o.credit.LockNote(ctx, r, org, id)
		if err != nil {
			return err
		}
		doc, err := lockDocument(ctx, r, org, cn.Source)
		if err != nil {
			return err
		}
		wasValidated := cn.Status != entity.CreditDraft
		generated := cn.Generated
		returned := cn.Type == entity.CreditTypeProductReturn && wasValidated
		if returned && doc.inv != nil && doc.inv.Status == entity.InvoiceProductReturnTotal {
			return fmt.Errorf("%w: la factura %s ya quedó en devolución total", domain.ErrInvalidTransition, doc.inv.ID)
		}
		if err := o.credit.CancelInTx(ctx, r, cn); err != nil {
			return err
		}
		if returned {
			if err := r.Locks.Lock(ctx, productKeys(cn.Lines)...); err != nil {
				return err
			}
			typ := entity.MovementAdd
			if cn.IsSupplierNote() {
				typ = entity.MovementRemove
			}
			if err := o.reverseMovements(ctx, r, org, entity.CreditNoteRef(cn.ID), typ, entity.ReasonReturnReversal); err != nil {
				return err
			}
		}
		doc.addIssued(generated.Neg())
		return doc.save(ctx, r, o.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// ListCreditNotes notas emitidas sobre un documento.
func (o *Orchestrator) ListCreditNotes(ctx context.Context, org string, source entity.SourceRef) ([]*entity.CreditNote, error) {
	if !source.IsDocument() {
		return nil, domain.Validation("origen %s no admite notas de crédito", source.Kind)
	}
	var out []*entity.CreditNote
	err := o.tx.Run(ctx, func(r ports.Repos) error {
		if _, err := loadDocument(ctx, r, org, source); err != nil {
			return err
		}
		var err error
		out, err = r.CreditNotes.ListBySource(ctx, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) moveReturnedStock(ctx context.Context, r ports.Repos, org string, cn *entity.CreditNote) error {
	if err := r.Locks.Lock(ctx, productKeys(cn.Lines)...); err != nil {
		return err
	}
	typ, reason := entity.MovementAdd, entity.ReasonCustomerReturn
	if cn.IsSupplierNote() {
		typ, reason = entity.MovementRemove, entity.ReasonSupplierReturn
	}
	for i, line := range cn.Lines {
		if line.ProductID == "" {
			continue
		}
		_, err := o.stock.ApplyMovementInTx(ctx, r, org, inventory.MovementInput{
			ProductID: line.ProductID,
			Type:      typ,
			Quantity:  line.Quantity,
			Reason:    reason,
			Source:    entity.CreditNoteRef(cn.ID),
		})
		if err != nil {
			return fmt.Errorf("línea %d: %w", i+1, err)
		}
	}
	return nil
}

// creditLines copia precio, descuento e IVA de las líneas origen con la cantidad pedida.
// La cantidad acumulada sobre una línea origen (notas no anuladas) no supera la original.
func creditLines(ctx context.Context, r ports.Repos, doc *sourceDoc, in []CreditLineInput) ([]entity.DocumentLine, decimal.Decimal, error) {
	credited, err := creditedQuantities(ctx, r, doc.ref(), func(cn *entity.CreditNote) bool {
		return cn.Status != entity.CreditCancelled
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	srcLines := doc.lines()
	lines := make([]entity.DocumentLine, 0, len(in))
	for i, l := range in {
		src := entity.FindLine(srcLines, l.SourceLineID)
		if src == nil {
			return nil, decimal.Zero, domain.Validation("línea %d: línea origen %q inexistente", i+1, l.SourceLineID)
		}
		if !l.Quantity.IsPositive() {
			return nil, decimal.Zero, domain.Validation("línea %d: cantidad debe ser positiva", i+1)
		}
		left := src.Quantity.Sub(credited[src.ID])
		if l.Quantity.GreaterThan(left) {
			return nil, decimal.Zero, domain.Validation("línea %d: cantidad %s supera lo pendiente de acreditar %s", i+1, l.Quantity, left)
		}
		credited[src.ID] = credited[src.ID].Add(l.Quantity)
		lines = append(lines, entity.DocumentLine{
			ID:              uuid.NewString(),
			ProductID:       src.ProductID,
			SourceLineID:    src.ID,
			Description:     src.Description,
			Quantity:        l.Quantity,
			UnitPriceHT:     src.UnitPriceHT,
			DiscountPercent: src.DiscountPercent,
			VATRate:         src.VATRate,
		})
	}
	totals, err := entity.FreezeTotals(lines, money.TaxConfig{})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return lines, totals.TotalTTC, nil
}

func creditedQuantities(ctx context.Context, r ports.Repos, source entity.SourceRef, keep func(*entity.CreditNote) bool) (map[string]decimal.Decimal, error) {
	notes, err := r.CreditNotes.ListBySource(ctx, source)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, cn := range notes {
		if !keep(cn) {
			continue
		}
		for _, l := range cn.Lines {
			out[l.SourceLineID] = out[l.SourceLineID].Add(l.Quantity)
		}
	}
	return out, nil
}

// fullyReturned indica si las devoluciones validadas cubren todas las líneas de la factura.
func fullyReturned(ctx context.Context, r ports.Repos, inv *entity.Invoice) (bool, error) {
	returned, err := creditedQuantities(ctx, r, entity.InvoiceRef(inv.ID), func(cn *entity.CreditNote) bool {
		return cn.Type == entity.CreditTypeProductReturn &&
			cn.Status != entity.CreditDraft && cn.Status != entity.CreditCancelled
	})
	if err != nil {
		return false, err
	}
	for _, l := range inv.Lines {
		if returned[l.ID].LessThan(l.Quantity) {
			return false, nil
		}
	}
	return true, nil
}

// sourceDoc factura o documento de compra bajo bloqueo, visto como origen o destino de crédito.
type sourceDoc struct {
	inv *entity.Invoice
	pur *entity.PurchaseDocument
}

func lockDocument(ctx context.Context, r ports.Repos, org string, ref entity.SourceRef) (*sourceDoc, error) {
	switch ref.Kind {
	case entity.SourceInvoice:
		inv, err := lockInvoice(ctx, r, org, ref.ID)
		if err != nil {
			return nil, err
		}
		return &sourceDoc{inv: inv}, nil
	case entity.SourcePurchase:
		pur, err := lockPurchase(ctx, r, org, ref.ID)
		if err != nil {
			return nil, err
		}
		return &sourceDoc{pur: pur}, nil
	}
	return nil, domain.Validation("origen %s no es un documento monetario", ref.Kind)
}

func loadDocument(ctx context.Context, r ports.Repos, org string, ref entity.SourceRef) (*sourceDoc, error) {
	switch ref.Kind {
	case entity.SourceInvoice:
		inv, err := loadInvoice(ctx, r, org, ref.ID)
		if err != nil {
			return nil, err
		}
		return &sourceDoc{inv: inv}, nil
	case entity.SourcePurchase:
		pur, err := loadPurchase(ctx, r, org, ref.ID)
		if err != nil {
			return nil, err
		}
		return &sourceDoc{pur: pur}, nil
	}
	return nil, domain.Validation("origen %s no es un documento monetario", ref.Kind)
}

func (d *sourceDoc) ref() entity.SourceRef {
	if d.inv != nil {
		return entity.InvoiceRef(d.inv.ID)
	}
	return entity.PurchaseRef(d.pur.ID)
}

func (d *sourceDoc) status() string {
	if d.inv != nil {
		return string(d.inv.Status)
	}
	return string(d.pur.Status)
}

func (d *sourceDoc) isValidated() bool {
	if d.inv != nil {
		return d.inv.Status == entity.InvoiceValidated
	}
	return d.pur.Status == entity.PurchaseValidated
}

// acceptsCredit validado, o factura ya en devolución total.
func (d *sourceDoc) acceptsCredit() bool {
	return d.isValidated() || (d.inv != nil && d.inv.Status == entity.InvoiceProductReturnTotal)
}

func (d *sourceDoc) lines() []entity.DocumentLine {
	if d.inv != nil {
		return d.inv.Lines
	}
	return d.pur.Lines
}

func (d *sourceDoc) party() string {
	if d.inv != nil {
		return d.inv.ClientID
	}
	return d.pur.SupplierID
}

func (d *sourceDoc) currency() string {
	if d.inv != nil {
		return d.inv.Currency
	}
	return d.pur.Currency
}

func (d *sourceDoc) exchangeRate() decimal.Decimal {
	if d.inv != nil {
		return d.inv.ExchangeRate
	}
	return d.pur.ExchangeRate
}

func (d *sourceDoc) creditable() decimal.Decimal {
	if d.inv != nil {
		return d.inv.CreditableAmount()
	}
	return d.pur.CreditableAmount()
}

// remainingDue saldo que aún puede cubrirse con crédito.
func (d *sourceDoc) remainingDue() decimal.Decimal {
	if d.inv != nil {
		return d.inv.RemainingDue()
	}
	return d.pur.Totals.NetPayable
}

func (d *sourceDoc) addIssued(delta decimal.Decimal) {
	if d.inv != nil {
		d.inv.CreditIssued = d.inv.CreditIssued.Add(delta)
		return
	}
	d.pur.CreditIssued = d.pur.CreditIssued.Add(delta)
}

func (d *sourceDoc) addCredited(amount decimal.Decimal) {
	if d.inv != nil {
		d.inv.Totals = d.inv.Totals.WithCredited(d.inv.Totals.TotalCredited.Add(amount))
		d.inv.RefreshPaymentStatus()
		return
	}
	d.pur.Totals = d.pur.Totals.WithCredited(d.pur.Totals.TotalCredited.Add(amount))
}

func (d *sourceDoc) save(ctx context.Context, r ports.Repos, now time.Time) error {
	if d.inv != nil {
		d.inv.UpdatedAt = now
		return r.Invoices.Update(ctx, d.inv)
	}
	d.pur.UpdatedAt = now
	return r.Purchases.Update(ctx, d.pur)
}
