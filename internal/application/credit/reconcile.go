package credit

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
)

// Reconciliation resultado de verificar una nota contra sus aplicaciones.
type Reconciliation struct {
	CreditNoteID string          `json:"credit_note_id"`
	Used         decimal.Decimal `json:"used"`
	Applied      decimal.Decimal `json:"applied"`
	Applications int             `json:"applications"`
	Consistent   bool            `json:"consistent"`
}

// Reconcile verifica la conservación y que used = Σ aplicaciones registradas.
func (l *CreditLedger) Reconcile(ctx context.Context, org, id string) (*Reconciliation, error) {
	var rec *Reconciliation
	err := l.run(ctx, "credit.reconcile", org, func(r ports.Repos) error {
		cn, err := r.CreditNotes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CheckTenant(org, cn.OrganizationID); err != nil {
			return err
		}
		apps, err := r.CreditApplications.ListByCreditNote(ctx, id)
		if err != nil {
			return err
		}
		rec = &Reconciliation{CreditNoteID: id, Used: cn.Used, Applications: len(apps)}
		for _, a := range apps {
			rec.Applied = rec.Applied.Add(a.Amount)
		}
		if err := cn.CheckConservation(); err != nil {
			return err
		}
		if !rec.Applied.Equal(cn.Used) {
			return domain.Invariant("nota %s: used %s, aplicaciones %s", id, cn.Used, rec.Applied)
		}
		rec.Consistent = true
		return nil
	})
	return rec, err
}
