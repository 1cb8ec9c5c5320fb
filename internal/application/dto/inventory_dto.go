package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// ReserveRequest body para POST /api/v1/reservations. ExpiresAt nulo usa la vigencia configurada.
type ReserveRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	ClientID  string          `json:"client_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

func (r ReserveRequest) ToInput() inventory.ReserveInput {
	return inventory.ReserveInput{
		ProductID: r.ProductID,
		ClientID:  r.ClientID,
		Quantity:  r.Quantity,
		ExpiresAt: r.ExpiresAt,
	}
}

// ReservationResponse reserva en respuestas.
type ReservationResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	ClientID       string          `json:"client_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Status         string          `json:"status"`
	ReleasedAt     *time.Time      `json:"released_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func ToReservationResponse(r *entity.ProductReservation) ReservationResponse {
	return ReservationResponse{
		ID:             r.ID,
		ProductID:      r.ProductID,
		ClientID:       r.ClientID,
		Quantity:       r.Quantity,
		ExpirationDate: r.ExpirationDate,
		Status:         string(r.Status),
		ReleasedAt:     r.ReleasedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// SourceRequest referencia opcional al origen de un movimiento.
type SourceRequest struct {
	Kind string `json:"kind" validate:"omitempty,oneof=invoice purchase_document credit_note payment reservation manual"`
	ID   string `json:"id" validate:"required_with=Kind"`
}

func (s *SourceRequest) ref() entity.SourceRef {
	if s == nil {
		return entity.SourceRef{}
	}
	return entity.SourceRef{Kind: entity.SourceKind(s.Kind), ID: s.ID}
}

// MovementRequest body para POST /api/v1/stock/movements (ajustes manuales y entradas directas).
type MovementRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=add remove"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	Reason    string          `json:"reason" validate:"omitempty,max=50"`
	Source    *SourceRequest  `json:"source"`
}

func (r MovementRequest) ToInput() inventory.MovementInput {
	reason := entity.MovementReason(r.Reason)
	if reason == "" {
		reason = entity.ReasonManualAdjustment
	}
	source := r.Source.ref()
	if source.IsZero() {
		source = entity.ManualRef(r.ProductID)
	}
	return inventory.MovementInput{
		ProductID: r.ProductID,
		Type:      entity.MovementType(r.Type),
		Quantity:  r.Quantity,
		UnitCost:  r.UnitCost,
		Reason:    reason,
		Source:    source,
	}
}

// ConsumeRequest body opcional para consumir una reserva fuera de una factura.
type ConsumeRequest struct {
	Source *SourceRequest `json:"source"`
}

func (r ConsumeRequest) SourceRef() entity.SourceRef { return r.Source.ref() }

// MovementResponse movimiento de stock en respuestas.
type MovementResponse struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	MovementType  string           `json:"movement_type"`
	Quantity      decimal.Decimal  `json:"quantity"`
	PreviousStock decimal.Decimal  `json:"previous_stock"`
	NewStock      decimal.Decimal  `json:"new_stock"`
	UnitCost      decimal.Decimal  `json:"unit_cost"`
	Reason        string           `json:"reason"`
	Source        entity.SourceRef `json:"source"`
	CreatedAt     time.Time        `json:"created_at"`
}

func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		MovementType:  string(m.MovementType),
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		UnitCost:      m.UnitCost,
		Reason:        string(m.Reason),
		Source:        m.Source,
		CreatedAt:     m.CreatedAt,
	}
}

// SweepResponse resultado de vencer reservas expiradas.
type SweepResponse struct {
	ProductID string `json:"product_id"`
	Expired   int    `json:"expired"`
}
