package repository

import (
	"context"

	"github.com/jhoicas/docledger/internal/domain/entity"
)

// OrganizationRepository puerto de persistencia para organizaciones (tenants).
type OrganizationRepository interface {
	Create(ctx context.Context, o *entity.Organization) error
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
}
