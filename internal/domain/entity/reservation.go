package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus estado de una reserva de stock.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationConsumed  ReservationStatus = "consumed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// ProductReservation retención temporal de stock a nombre de un cliente.
// Solo el Stock Ledger la modifica.
type ProductReservation struct {
	ID             string
	OrganizationID string
	ProductID      string
	ClientID       string
	Quantity       decimal.Decimal
	ExpirationDate time.Time
	Status         ReservationStatus
	ReleasedAt     *time.Time // liberada, vencida o consumida
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive indica si la reserva sigue reteniendo stock.
func (r *ProductReservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsExpired indica si la reserva activa ya pasó su fecha de expiración.
func (r *ProductReservation) IsExpired(now time.Time) bool {
	return r.IsActive() && now.After(r.ExpirationDate)
}

func (r *ProductReservation) close(status ReservationStatus, now time.Time) {
	r.Status = status
	r.ReleasedAt = &now
	r.UpdatedAt = now
}

// Release marca la reserva como cancelada (o vencida si expiró).
func (r *ProductReservation) Release(now time.Time) {
	if r.IsExpired(now) {
		r.close(ReservationExpired, now)
		return
	}
	r.close(ReservationCancelled, now)
}

// Expire marca la reserva como vencida.
func (r *ProductReservation) Expire(now time.Time) { r.close(ReservationExpired, now) }

// Consume marca la reserva como consumida por una venta.
func (r *ProductReservation) Consume(now time.Time) { r.close(ReservationConsumed, now) }
