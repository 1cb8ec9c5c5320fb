package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// StockMovementRepository log append-only de movimientos de stock.
type StockMovementRepository interface {
	Create(ctx context.Context, m *entity.StockMovement) error
	// ListByProduct en orden de inserción.
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockMovement, error)
	ListBySource(ctx context.Context, source entity.SourceRef) ([]*entity.StockMovement, error)
}
