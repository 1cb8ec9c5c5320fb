package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// PurchaseRepository puerto de persistencia para documentos de compra.
type PurchaseRepository interface {
	Create(ctx context.Context, p *entity.PurchaseDocument) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseDocument, error)
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseDocument, error)
	Update(ctx context.Context, p *entity.PurchaseDocument) error
}
