package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// ReservationRepository puerto de persistencia para reservas de stock.
// Las reservas se modifican solo bajo el bloqueo de su producto.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.ProductReservation) error
	GetByID(ctx context.Context, id string) (*entity.ProductReservation, error)
	Update(ctx context.Context, r *entity.ProductReservation) error
	ListActiveByProduct(ctx context.Context, productID string) ([]*entity.ProductReservation, error)
}
