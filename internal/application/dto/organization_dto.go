package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// CreateOrganizationRequest body para POST /api/v1/organizations.
// StampDutyAmount nulo usa el timbre por defecto de la configuración.
type CreateOrganizationRequest struct {
	ID                string           `json:"id" validate:"omitempty,max=64"`
	Name              string           `json:"name" validate:"required,max=200"`
	TaxID             string           `json:"tax_id" validate:"max=50"`
	ReferenceCurrency string           `json:"reference_currency" validate:"omitempty,len=3"`
	StampDutyAmount   *decimal.Decimal `json:"stamp_duty_amount" validate:"omitempty,gte=0"`
}

func (r CreateOrganizationRequest) ToInput() billing.CreateOrganizationInput {
	return billing.CreateOrganizationInput{
		ID:                r.ID,
		Name:              r.Name,
		TaxID:             r.TaxID,
		ReferenceCurrency: r.ReferenceCurrency,
		StampDutyAmount:   r.StampDutyAmount,
	}
}

// OrganizationResponse organización en respuestas.
type OrganizationResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	TaxID             string          `json:"tax_id,omitempty"`
	ReferenceCurrency string          `json:"reference_currency"`
	StampDutyAmount   decimal.Decimal `json:"stamp_duty_amount"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

func ToOrganizationResponse(o *entity.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                o.ID,
		Name:              o.Name,
		TaxID:             o.TaxID,
		ReferenceCurrency: o.ReferenceCurrency,
		StampDutyAmount:   o.StampDutyAmount,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
	}
}
