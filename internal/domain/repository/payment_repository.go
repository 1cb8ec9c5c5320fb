package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// PaymentRepository registro append-only de pagos de facturas.
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
}
