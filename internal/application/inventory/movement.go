package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/inventory"
)

// ApplyMovementInTx aplica una entrada o salida directa y registra su fila de auditoría.
// Una salida exige stock libre (available >= qty); con allow_out_of_stock_sale basta current >= qty.
// Con unlimited_stock no se modifica current_stock, pero el movimiento se registra igual.
func (l *StockLedger) ApplyMovementInTx(ctx context.Context, r ports.Repos, org string, in MovementInput) (*entity.StockMovement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := r.Locks.Lock(ctx, ports.ProductKey(in.ProductID)); err != nil {
		return nil, err
	}
	p, err := lockedProduct(ctx, r, org, in.ProductID)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	if _, err := l.expireDue(ctx, r, p, now); err != nil {
		return nil, err
	}

	mov := newMovement(p, in.Type, in.Quantity, in.Reason, in.Source, now)
	switch in.Type {
	case entity.MovementAdd:
		if in.UnitCost.IsPositive() {
			p.Cost = inventory.WeightedAverageCost(p.CurrentStock, p.Cost, in.Quantity, in.UnitCost)
			mov.UnitCost = in.UnitCost
		}
		if !p.UnlimitedStock {
			p.CurrentStock = p.CurrentStock.Add(in.Quantity)
		}
	case entity.MovementRemove:
		if !p.UnlimitedStock {
			free := p.AvailableStock()
			if p.AllowOutOfStockSale {
				free = p.CurrentStock
			}
			if free.LessThan(in.Quantity) {
				return nil, domain.ErrInsufficientStock
			}
			p.CurrentStock = p.CurrentStock.Sub(in.Quantity)
		}
	}
	mov.NewStock = p.CurrentStock

	if err := saveProduct(ctx, r, p, now); err != nil {
		return nil, err
	}
	if err := r.StockMovements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

func newMovement(p *entity.Product, typ entity.MovementType, qty decimal.Decimal, reason entity.MovementReason, source entity.SourceRef, now time.Time) *entity.StockMovement {
	return &entity.StockMovement{
		ID:             uuid.NewString(),
		OrganizationID: p.OrganizationID,
		ProductID:      p.ID,
		MovementType:   typ,
		Quantity:       qty,
		PreviousStock:  p.CurrentStock,
		NewStock:       p.CurrentStock,
		UnitCost:       p.Cost,
		Reason:         reason,
		Source:         source,
		CreatedAt:      now,
	}
}
