package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// InvoiceReconciliation cachés de la factura contra sus fuentes.
type InvoiceReconciliation struct {
	InvoiceID     string          `json:"invoice_id"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Payments      decimal.Decimal `json:"payments"`
	TotalCredited decimal.Decimal `json:"total_credited"`
	Applications  decimal.Decimal `json:"applications"`
	CreditIssued  decimal.Decimal `json:"credit_issued"`
	NotesIssued   decimal.Decimal `json:"notes_issued"`
	Consistent    bool            `json:"consistent"`
}

// ReconcileInvoice recalcula totales, paid_amount, total_credited, credit_issued y
// payment_status desde pagos, aplicaciones y notas. Una diferencia es un defecto.
func (o *Orchestrator) ReconcileInvoice(ctx context.Context, org, id string) (*InvoiceReconciliation, error) {
	var rec *InvoiceReconciliation
	err := o.run(ctx, "billing.reconcile_invoice", org, func(r ports.Repos) error {
		inv, err := loadInvoice(ctx, r, org, id)
		if err != nil {
			return err
		}
		rec = &InvoiceReconciliation{
			InvoiceID:     id,
			PaidAmount:    inv.PaidAmount,
			TotalCredited: inv.Totals.TotalCredited,
			CreditIssued:  inv.CreditIssued,
		}
		payments, err := r.Payments.ListByInvoice(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range payments {
			rec.Payments = rec.Payments.Add(p.Amount)
		}
		apps, err := r.CreditApplications.ListByTarget(ctx, entity.InvoiceRef(id))
		if err != nil {
			return err
		}
		for _, a := range apps {
			rec.Applications = rec.Applications.Add(a.Amount)
		}
		notes, err := r.CreditNotes.ListBySource(ctx, entity.InvoiceRef(id))
		if err != nil {
			return err
		}
		for _, cn := range notes {
			rec.NotesIssued = rec.NotesIssued.Add(cn.Generated)
		}

		lines := make([]entity.DocumentLine, len(inv.Lines))
		copy(lines, inv.Lines)
		totals, err := entity.FreezeTotals(lines, inv.Taxes)
		if err != nil {
			return err
		}
		totals = totals.WithCredited(rec.Applications)
		switch {
		case !totals.NetPayable.Equal(inv.Totals.NetPayable) || !totals.TotalTTC.Equal(inv.Totals.TotalTTC):
			return domain.Invariant("factura %s: totales %s/%s recalculados %s/%s",
				id, inv.Totals.TotalTTC, inv.Totals.NetPayable, totals.TotalTTC, totals.NetPayable)
		case !rec.Payments.Equal(inv.PaidAmount):
			return domain.Invariant("factura %s: paid_amount %s, pagos %s", id, inv.PaidAmount, rec.Payments)
		case !rec.Applications.Equal(inv.Totals.TotalCredited):
			return domain.Invariant("factura %s: total_credited %s, aplicaciones %s", id, inv.Totals.TotalCredited, rec.Applications)
		case !rec.NotesIssued.Equal(inv.CreditIssued):
			return domain.Invariant("factura %s: credit_issued %s, notas %s", id, inv.CreditIssued, rec.NotesIssued)
		case inv.PaymentStatus != entity.DerivePaymentStatus(inv.PaidAmount, inv.Totals.NetPayable):
			return domain.Invariant("factura %s: payment_status %s no derivado", id, inv.PaymentStatus)
		}
		rec.Consistent = true
		return nil
	})
	return rec, err
}
