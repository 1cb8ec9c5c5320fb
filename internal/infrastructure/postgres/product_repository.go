package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, organization_id, sku, name, price, cost, vat_rate, current_stock, reserved_stock,
	unlimited_stock, allow_out_of_stock_sale, version, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.VATRate, &p.CurrentStock, &p.ReservedStock,
		&p.UnlimitedStock, &p.AllowOutOfStockSale, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo producto con version 1.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	if p.Version == 0 {
		p.Version = 1
	}
	query := `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.OrganizationID, p.SKU, p.Name, p.Price, p.Cost, p.VATRate, p.CurrentStock, p.ReservedStock,
		p.UnlimitedStock, p.AllowOutOfStockSale, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", mapError(err))
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "product "+id)
	}
	return p, nil
}

// GetForUpdate obtiene el producto bloqueando la fila (SELECT FOR UPDATE).
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "product "+id)
	}
	return p, nil
}

// Update persiste stock, costo y precios si la versión no cambió; incrementa Version.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	query := `
		UPDATE products SET name = $3, price = $4, cost = $5, vat_rate = $6, current_stock = $7, reserved_stock = $8,
			unlimited_stock = $9, allow_out_of_stock_sale = $10, updated_at = $11, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.Version, p.Name, p.Price, p.Cost, p.VATRate, p.CurrentStock, p.ReservedStock,
		p.UnlimitedStock, p.AllowOutOfStockSale, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", mapError(err))
	}
	if err := checkUpdated(tag, "product "+p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}

// ListByOrganization lista productos de la organización ordenados por SKU.
func (r *ProductRepo) ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Product, error) {
	// LIMIT NULL equivale a sin límite
	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE organization_id = $1 ORDER BY sku LIMIT $2 OFFSET $3`,
		organizationID, lim, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
