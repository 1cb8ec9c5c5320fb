package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// StockReconciliation resultado de recalcular los campos derivados de un producto.
type StockReconciliation struct {
	ProductID      string          `json:"product_id"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	ReplayedStock  decimal.Decimal `json:"replayed_stock"`
	ReservedStock  decimal.Decimal `json:"reserved_stock"`
	ActiveReserved decimal.Decimal `json:"active_reserved"`
	Movements      int             `json:"movements"`
	Consistent     bool            `json:"consistent"`
}

// Reconcile reproduce el log de movimientos desde 0 y suma las reservas activas.
// Devuelve ErrInvariantViolation si current_stock o reserved_stock no coinciden con el ledger.
func (l *StockLedger) Reconcile(ctx context.Context, org, productID string) (*StockReconciliation, error) {
	var rec *StockReconciliation
	err := l.run(ctx, "stock.reconcile", org, func(r ports.Repos) error {
		p, err := loadProduct(ctx, r, org, productID)
		if err != nil {
			return err
		}
		movs, err := r.StockMovements.ListByProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		active, err := r.Reservations.ListActiveByProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		rec = &StockReconciliation{
			ProductID:     p.ID,
			CurrentStock:  p.CurrentStock,
			ReservedStock: p.ReservedStock,
			Movements:     len(movs),
		}
		replayed, err := replayStock(p, movs)
		if err != nil {
			return err
		}
		rec.ReplayedStock = replayed
		for _, res := range active {
			rec.ActiveReserved = rec.ActiveReserved.Add(res.Quantity)
		}
		if !replayed.Equal(p.CurrentStock) {
			return domain.Invariant("producto %s: current_stock %s, log %s", p.ID, p.CurrentStock, replayed)
		}
		if !rec.ActiveReserved.Equal(p.ReservedStock) {
			return domain.Invariant("producto %s: reserved_stock %s, reservas activas %s", p.ID, p.ReservedStock, rec.ActiveReserved)
		}
		if err := p.CheckInvariants(); err != nil {
			return err
		}
		rec.Consistent = true
		return nil
	})
	if err != nil {
		return rec, err
	}
	return rec, nil
}

func replayStock(p *entity.Product, movs []*entity.StockMovement) (decimal.Decimal, error) {
	running := decimal.Zero
	for i, m := range movs {
		if !m.PreviousStock.Equal(running) {
			return running, domain.Invariant("producto %s: movimiento %d parte de %s, se esperaba %s", p.ID, i+1, m.PreviousStock, running)
		}
		want := running.Add(m.SignedQuantity())
		if p.UnlimitedStock {
			want = running
		}
		if !m.NewStock.Equal(want) {
			return running, domain.Invariant("producto %s: movimiento %d deja %s, se esperaba %s", p.ID, i+1, m.NewStock, want)
		}
		running = m.NewStock
	}
	return running, nil
}
