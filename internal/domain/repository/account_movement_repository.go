package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// AccountMovementRepository libro append-only de movimientos de cuenta por cliente.
type AccountMovementRepository interface {
	Create(ctx context.Context, m *entity.ClientAccountMovement) error
	GetByID(ctx context.Context, id string) (*entity.ClientAccountMovement, error)
	// Last último movimiento del cliente por (movement_date, sequence); nil si no hay.
	Last(ctx context.Context, clientID string) (*entity.ClientAccountMovement, error)
	// ListByClient ordenados por (movement_date, sequence).
	ListByClient(ctx context.Context, clientID string) ([]*entity.ClientAccountMovement, error)
	// FindCompensation movimiento que compensa al indicado; nil si no existe.
	FindCompensation(ctx context.Context, movementID string) (*entity.ClientAccountMovement, error)
}
