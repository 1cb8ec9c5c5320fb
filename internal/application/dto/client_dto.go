package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// CreateClientRequest body para POST /api/v1/clients.
type CreateClientRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	TaxID string `json:"tax_id" validate:"max=50"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

func (r CreateClientRequest) ToInput() account.CreateClientInput {
	return account.CreateClientInput{Name: r.Name, TaxID: r.TaxID, Email: r.Email}
}

// ClientResponse cliente con su saldo confirmado.
type ClientResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	TaxID          string          `json:"tax_id,omitempty"`
	Email          string          `json:"email,omitempty"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

func ToClientResponse(c *entity.Client) ClientResponse {
	return ClientResponse{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		TaxID:          c.TaxID,
		Email:          c.Email,
		AccountBalance: c.AccountBalance,
		CreatedAt:      c.CreatedAt,
	}
}

// AccountMovementRequest ajuste manual de cuenta corriente en moneda de referencia.
// Positivo = débito al cliente.
type AccountMovementRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
	Source      *SourceRequest  `json:"source"`
}

func (r AccountMovementRequest) ToInput(clientID string) account.AppendInput {
	source := r.Source.ref()
	if source.IsZero() {
		source = entity.ManualRef(clientID)
	}
	return account.AppendInput{
		ClientID:    clientID,
		Amount:      r.Amount,
		Source:      source,
		Description: r.Description,
	}
}

// AccountMovementResponse movimiento de cuenta en respuestas.
type AccountMovementResponse struct {
	ID              string           `json:"id"`
	ClientID        string           `json:"client_id"`
	Amount          decimal.Decimal  `json:"amount"`
	BalanceAfter    decimal.Decimal  `json:"balance_after"`
	Source          entity.SourceRef `json:"source"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Description     string           `json:"description,omitempty"`
	MovementDate    time.Time        `json:"movement_date"`
	Sequence        int64            `json:"sequence"`
}

func ToAccountMovementResponse(m *entity.ClientAccountMovement) AccountMovementResponse {
	return AccountMovementResponse{
		ID:              m.ID,
		ClientID:        m.ClientID,
		Amount:          m.Amount,
		BalanceAfter:    m.BalanceAfter,
		Source:          m.Source,
		ReferenceNumber: m.ReferenceNumber,
		Description:     m.Description,
		MovementDate:    m.MovementDate,
		Sequence:        m.Sequence,
	}
}

// BalanceResponse saldo de un cliente.
type BalanceResponse struct {
	ClientID string          `json:"client_id"`
	Balance  decimal.Decimal `json:"balance"`
}
