package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var _ repository.AccountMovementRepository = (*AccountMovementRepo)(nil)

// AccountMovementRepo libro append-only de movimientos de cuenta.
// El índice único parcial sobre reference_number impide compensar dos veces el mismo movimiento.
type AccountMovementRepo struct {
	q Querier
}

// NewAccountMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAccountMovementRepository(q Querier) *AccountMovementRepo {
	return &AccountMovementRepo{q: q}
}

const accountMovementColumns = `id, organization_id, client_id, amount, balance_after, source_kind, source_id,
	reference_number, description, movement_date, sequence, created_at`

func scanAccountMovement(row pgx.Row) (*entity.ClientAccountMovement, error) {
	var m entity.ClientAccountMovement
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.ClientID, &m.Amount, &m.BalanceAfter, &m.Source.Kind, &m.Source.ID,
		&m.ReferenceNumber, &m.Description, &m.MovementDate, &m.Sequence, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *AccountMovementRepo) Create(ctx context.Context, m *entity.ClientAccountMovement) error {
	query := `INSERT INTO client_account_movements (` + accountMovementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrganizationID, m.ClientID, m.Amount, m.BalanceAfter, m.Source.Kind, m.Source.ID,
		m.ReferenceNumber, m.Description, m.MovementDate, m.Sequence, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert account movement: %w", mapError(err))
	}
	return nil
}

func (r *AccountMovementRepo) GetByID(ctx context.Context, id string) (*entity.ClientAccountMovement, error) {
	m, err := scanAccountMovement(r.q.QueryRow(ctx, `SELECT `+accountMovementColumns+` FROM client_account_movements WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "account movement "+id)
	}
	return m, nil
}

func (r *AccountMovementRepo) Last(ctx context.Context, clientID string) (*entity.ClientAccountMovement, error) {
	return r.optional(ctx, `WHERE client_id = $1 ORDER BY movement_date DESC, sequence DESC LIMIT 1`, clientID)
}

func (r *AccountMovementRepo) FindCompensation(ctx context.Context, movementID string) (*entity.ClientAccountMovement, error) {
	return r.optional(ctx, `WHERE reference_number = $1`, movementID)
}

func (r *AccountMovementRepo) ListByClient(ctx context.Context, clientID string) ([]*entity.ClientAccountMovement, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+accountMovementColumns+` FROM client_account_movements WHERE client_id = $1 ORDER BY movement_date, sequence`,
		clientID)
	if err != nil {
		return nil, fmt.Errorf("list account movements: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.ClientAccountMovement
	for rows.Next() {
		m, err := scanAccountMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// optional devuelve nil sin error cuando no hay fila.
func (r *AccountMovementRepo) optional(ctx context.Context, where string, args ...any) (*entity.ClientAccountMovement, error) {
	m, err := scanAccountMovement(r.q.QueryRow(ctx, `SELECT `+accountMovementColumns+` FROM client_account_movements `+where, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account movement: %w", mapError(err))
	}
	return m, nil
}
