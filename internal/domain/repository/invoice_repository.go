package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// InvoiceRepository puerto de persistencia para facturas y sus líneas.
// Create guarda cabecera y líneas; Update guarda cabecera y totales de línea.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	ListByClient(ctx context.Context, clientID string) ([]*entity.Invoice, error)
}
