package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo log append-only de movimientos; seq conserva el orden de inserción.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const stockMovementColumns = `id, organization_id, product_id, movement_type, quantity, previous_stock, new_stock,
	unit_cost, reason, source_kind, source_id, created_at`

func scanStockMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.ProductID, &m.MovementType, &m.Quantity, &m.PreviousStock, &m.NewStock,
		&m.UnitCost, &m.Reason, &m.Source.Kind, &m.Source.ID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `INSERT INTO stock_movements (` + stockMovementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrganizationID, m.ProductID, m.MovementType, m.Quantity, m.PreviousStock, m.NewStock,
		m.UnitCost, m.Reason, m.Source.Kind, m.Source.ID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", mapError(err))
	}
	return nil
}

func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, `WHERE product_id = $1 ORDER BY seq`, productID)
}

func (r *StockMovementRepo) ListBySource(ctx context.Context, source entity.SourceRef) ([]*entity.StockMovement, error) {
	return r.list(ctx, `WHERE source_kind = $1 AND source_id = $2 ORDER BY seq`, source.Kind, source.ID)
}

func (r *StockMovementRepo) list(ctx context.Context, where string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stockMovementColumns+` FROM stock_movements `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
