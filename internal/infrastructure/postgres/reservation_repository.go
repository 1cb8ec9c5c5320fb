package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo adaptador de reservas de stock.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, organization_id, product_id, client_id, quantity, expiration_date, status,
	released_at, version, created_at, updated_at`

func scanReservation(row pgx.Row) (*entity.ProductReservation, error) {
	var res entity.ProductReservation
	err := row.Scan(
		&res.ID, &res.OrganizationID, &res.ProductID, &res.ClientID, &res.Quantity, &res.ExpirationDate, &res.Status,
		&res.ReleasedAt, &res.Version, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepo) Create(ctx context.Context, res *entity.ProductReservation) error {
	if res.Version == 0 {
		res.Version = 1
	}
	query := `INSERT INTO product_reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.OrganizationID, res.ProductID, res.ClientID, res.Quantity, res.ExpirationDate, res.Status,
		res.ReleasedAt, res.Version, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", mapError(err))
	}
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.ProductReservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM product_reservations WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "reservation "+id)
	}
	return res, nil
}

// Update cambia estado y fecha de liberación con verificación de versión.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.ProductReservation) error {
	query := `
		UPDATE product_reservations SET status = $3, released_at = $4, expiration_date = $5, updated_at = $6,
			version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, res.ID, res.Version, res.Status, res.ReleasedAt, res.ExpirationDate, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", mapError(err))
	}
	if err := checkUpdated(tag, "reservation "+res.ID); err != nil {
		return err
	}
	res.Version++
	return nil
}

func (r *ReservationRepo) ListActiveByProduct(ctx context.Context, productID string) ([]*entity.ProductReservation, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+reservationColumns+` FROM product_reservations
		WHERE product_id = $1 AND status = $2 ORDER BY created_at, id`,
		productID, entity.ReservationActive)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.ProductReservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}
