package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// CreditNoteRepository puerto de persistencia para notas de crédito (cliente y proveedor).
type CreditNoteRepository interface {
	Create(ctx context.Context, cn *entity.CreditNote) error
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error)
	Update(ctx context.Context, cn *entity.CreditNote) error
	ListBySource(ctx context.Context, source entity.SourceRef) ([]*entity.CreditNote, error)
	ListByParty(ctx context.Context, organizationID, partyID string) ([]*entity.CreditNote, error)
}

// CreditApplicationRepository registro append-only de aplicaciones de crédito.
type CreditApplicationRepository interface {
	Create(ctx context.Context, a *entity.CreditApplication) error
	ListByCreditNote(ctx context.Context, creditNoteID string) ([]*entity.CreditApplication, error)
	ListByTarget(ctx context.Context, target entity.SourceRef) ([]*entity.CreditApplication, error)
}
