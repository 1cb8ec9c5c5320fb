package account

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
)

// Reconciliation resultado de reproducir el libro de un cliente desde cero.
type Reconciliation struct {
	ClientID       string          `json:"client_id"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	Replayed       decimal.Decimal `json:"replayed"`
	Movements      int             `json:"movements"`
	Consistent     bool            `json:"consistent"`
}

// Reconcile reproduce los movimientos desde balance 0 y verifica cada balance_after
// y el account_balance almacenado.
func (l *AccountLedger) Reconcile(ctx context.Context, org, clientID string) (*Reconciliation, error) {
	var rec *Reconciliation
	err := l.run(ctx, "account.reconcile", org, func(r ports.Repos) error {
		c, err := LoadClient(ctx, r, org, clientID)
		if err != nil {
			return err
		}
		movs, err := r.AccountMovements.ListByClient(ctx, c.ID)
		if err != nil {
			return err
		}
		rec = &Reconciliation{ClientID: c.ID, AccountBalance: c.AccountBalance, Movements: len(movs)}
		running := decimal.Zero
		for i, m := range movs {
			running = running.Add(m.Amount)
			if !m.BalanceAfter.Equal(running) {
				rec.Replayed = running
				return domain.Invariant("cliente %s: movimiento %d balance_after %s, replay %s", c.ID, i+1, m.BalanceAfter, running)
			}
		}
		rec.Replayed = running
		if !running.Equal(c.AccountBalance) {
			return domain.Invariant("cliente %s: account_balance %s, replay %s", c.ID, c.AccountBalance, running)
		}
		rec.Consistent = true
		return nil
	})
	return rec, err
}
