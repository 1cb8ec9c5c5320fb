package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// ProductRepository puerto de persistencia para Product.
// GetByID/GetForUpdate devuelven domain.ErrNotFound si no existe; no filtran por organización,
// el caller verifica el tenant. Update compara Version y la incrementa.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Product, error)
}
