package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/billing"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// CreditLineRequest cantidad a revertir de una línea del documento origen.
type CreditLineRequest struct {
	SourceLineID string          `json:"source_line_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// IssueCreditRequest body para POST /api/v1/credit-notes. Con líneas el monto sale de ellas.
type IssueCreditRequest struct {
	SourceKind string              `json:"source_kind" validate:"required,oneof=invoice purchase_document"`
	SourceID   string              `json:"source_id" validate:"required"`
	Type       string              `json:"type" validate:"required,oneof=product_return commercial_price other"`
	Reason     string              `json:"reason" validate:"max=500"`
	Amount     decimal.Decimal     `json:"amount" validate:"gte=0"`
	Lines      []CreditLineRequest `json:"lines" validate:"dive"`
}

func (r IssueCreditRequest) ToInput() billing.IssueCreditInput {
	in := billing.IssueCreditInput{
		Source: entity.SourceRef{Kind: entity.SourceKind(r.SourceKind), ID: r.SourceID},
		Type:   entity.CreditNoteType(r.Type),
		Reason: r.Reason,
		Amount: r.Amount,
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, billing.CreditLineInput{SourceLineID: l.SourceLineID, Quantity: l.Quantity})
	}
	return in
}

// CreditAmountRequest monto para bloquear o desbloquear crédito.
type CreditAmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

// ApplyCreditRequest body para POST /api/v1/credit-notes/:id/apply.
type ApplyCreditRequest struct {
	TargetKind  string          `json:"target_kind" validate:"required,oneof=invoice purchase_document"`
	TargetID    string          `json:"target_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	FromBlocked bool            `json:"from_blocked"`
}

func (r ApplyCreditRequest) ToInput() billing.ApplyCreditInput {
	return billing.ApplyCreditInput{
		Target:      entity.SourceRef{Kind: entity.SourceKind(r.TargetKind), ID: r.TargetID},
		Amount:      r.Amount,
		FromBlocked: r.FromBlocked,
	}
}

// CreditNoteResponse nota de crédito con su cuádrupla.
type CreditNoteResponse struct {
	ID           string                `json:"id"`
	Number       string                `json:"number"`
	Source       entity.SourceRef      `json:"source"`
	PartyID      string                `json:"party_id"`
	Type         string                `json:"type"`
	Status       string                `json:"status"`
	Currency     string                `json:"currency"`
	ExchangeRate decimal.Decimal       `json:"exchange_rate"`
	Lines        []entity.DocumentLine `json:"lines,omitempty"`
	Generated    decimal.Decimal       `json:"generated"`
	Used         decimal.Decimal       `json:"used"`
	Blocked      decimal.Decimal       `json:"blocked"`
	Available    decimal.Decimal       `json:"available"`
	Reason       string                `json:"reason,omitempty"`
	Version      int                   `json:"version"`
	ValidatedAt  *time.Time            `json:"validated_at,omitempty"`
	CancelledAt  *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

func ToCreditNoteResponse(cn *entity.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:           cn.ID,
		Number:       cn.Number,
		Source:       cn.Source,
		PartyID:      cn.PartyID,
		Type:         string(cn.Type),
		Status:       string(cn.Status),
		Currency:     cn.Currency,
		ExchangeRate: cn.ExchangeRate,
		Lines:        cn.Lines,
		Generated:    cn.Generated,
		Used:         cn.Used,
		Blocked:      cn.Blocked,
		Available:    cn.Available,
		Reason:       cn.Reason,
		Version:      cn.Version,
		ValidatedAt:  cn.ValidatedAt,
		CancelledAt:  cn.CancelledAt,
		CreatedAt:    cn.CreatedAt,
	}
}

// CreditApplicationResponse aplicación de crédito registrada.
type CreditApplicationResponse struct {
	ID           string           `json:"id"`
	CreditNoteID string           `json:"credit_note_id"`
	Target       entity.SourceRef `json:"target"`
	Amount       decimal.Decimal  `json:"amount"`
	FromBlocked  bool             `json:"from_blocked"`
	AppliedAt    time.Time        `json:"applied_at"`
}

func ToCreditApplicationResponse(a *entity.CreditApplication) CreditApplicationResponse {
	return CreditApplicationResponse{
		ID:           a.ID,
		CreditNoteID: a.CreditNoteID,
		Target:       a.Target,
		Amount:       a.Amount,
		FromBlocked:  a.FromBlocked,
		AppliedAt:    a.AppliedAt,
	}
}
