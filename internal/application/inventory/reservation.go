package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
)

// ReserveInTx crea una reserva activa e incrementa reserved_stock.
// Falla con ErrInsufficientStock si available < qty, salvo allow_out_of_stock_sale o unlimited_stock.
func (l *StockLedger) ReserveInTx(ctx context.Context, r ports.Repos, org string, in ReserveInput) (*entity.ProductReservation, error) {
	if err := checkQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if in.ProductID == "" || in.ClientID == "" {
		return nil, domain.Validation("product_id y client_id requeridos")
	}
	now := l.clock.Now()
	expiresAt := now.Add(l.reservationTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, domain.Validation("expiration_date debe ser futura")
		}
		expiresAt = *in.ExpiresAt
	}

	if err := r.Locks.Lock(ctx, ports.ProductKey(in.ProductID)); err != nil {
		return nil, err
	}
	p, err := lockedProduct(ctx, r, org, in.ProductID)
	if err != nil {
		return nil, err
	}
	if _, err := l.expireDue(ctx, r, p, now); err != nil {
		return nil, err
	}
	if !p.CanOverReserve() && p.AvailableStock().LessThan(in.Quantity) {
		return nil, domain.ErrInsufficientStock
	}

	res := &entity.ProductReservation{
		ID:             uuid.NewString(),
		OrganizationID: org,
		ProductID:      p.ID,
		ClientID:       in.ClientID,
		Quantity:       in.Quantity,
		ExpirationDate: expiresAt,
		Status:         entity.ReservationActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.ReservedStock = p.ReservedStock.Add(in.Quantity)
	if err := saveProduct(ctx, r, p, now); err != nil {
		return nil, err
	}
	if err := r.Reservations.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ReleaseInTx libera una reserva activa (cancelled, o expired si ya venció).
// Liberar una reserva no activa no hace nada.
func (l *StockLedger) ReleaseInTx(ctx context.Context, r ports.Repos, org, reservationID string) (*entity.ProductReservation, error) {
	res, p, err := l.lockReservation(ctx, r, org, reservationID)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	expired, err := l.expireDue(ctx, r, p, now)
	if err != nil {
		return nil, err
	}
	if res, err = r.Reservations.GetByID(ctx, reservationID); err != nil {
		return nil, err
	}
	if !res.IsActive() {
		if expired > 0 {
			return res, saveProduct(ctx, r, p, now)
		}
		return res, nil
	}
	res.Release(now)
	if err := r.Reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	p.ReservedStock = p.ReservedStock.Sub(res.Quantity)
	if err := saveProduct(ctx, r, p, now); err != nil {
		return nil, err
	}
	return res, nil
}

// ConsumeInTx convierte una reserva activa en salida de stock: descuenta current_stock y
// reserved_stock juntos, marca la reserva consumed y registra un movimiento remove.
func (l *StockLedger) ConsumeInTx(ctx context.Context, r ports.Repos, org, reservationID string, source entity.SourceRef) (*entity.StockMovement, error) {
	if !source.IsZero() {
		if err := source.Validate(); err != nil {
			return nil, err
		}
	}
	res, p, err := l.lockReservation(ctx, r, org, reservationID)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	if _, err := l.expireDue(ctx, r, p, now); err != nil {
		return nil, err
	}
	// la reserva pudo vencer en expireDue
	if res, err = r.Reservations.GetByID(ctx, reservationID); err != nil {
		return nil, err
	}
	if !res.IsActive() {
		return nil, domain.Transition("reserva", string(res.Status), string(entity.ReservationConsumed))
	}
	if !p.UnlimitedStock && p.CurrentStock.LessThan(res.Quantity) {
		return nil, domain.ErrInsufficientStock
	}
	if source.IsZero() {
		source = entity.ReservationRef(res.ID)
	}

	mov := newMovement(p, entity.MovementRemove, res.Quantity, entity.ReasonSale, source, now)
	p.ReservedStock = p.ReservedStock.Sub(res.Quantity)
	if !p.UnlimitedStock {
		p.CurrentStock = p.CurrentStock.Sub(res.Quantity)
	}
	mov.NewStock = p.CurrentStock
	res.Consume(now)

	if err := r.Reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	if err := saveProduct(ctx, r, p, now); err != nil {
		return nil, err
	}
	if err := r.StockMovements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// GetReservation lectura de una reserva.
func (l *StockLedger) GetReservation(ctx context.Context, org, id string) (*entity.ProductReservation, error) {
	var res *entity.ProductReservation
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		res, err = r.Reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return domain.CheckTenant(org, res.OrganizationID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockReservation carga la reserva, bloquea su producto y la relee bajo el bloqueo.
func (l *StockLedger) lockReservation(ctx context.Context, r ports.Repos, org, id string) (*entity.ProductReservation, *entity.Product, error) {
	if id == "" {
		return nil, nil, domain.Validation("reservation_id requerido")
	}
	res, err := r.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := domain.CheckTenant(org, res.OrganizationID); err != nil {
		return nil, nil, err
	}
	if err := r.Locks.Lock(ctx, ports.ProductKey(res.ProductID)); err != nil {
		return nil, nil, err
	}
	p, err := lockedProduct(ctx, r, org, res.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if res, err = r.Reservations.GetByID(ctx, id); err != nil {
		return nil, nil, err
	}
	return res, p, nil
}

// expireDue vence las reservas activas expiradas del producto y ajusta reserved_stock
// en memoria; el caller persiste el producto.
func (l *StockLedger) expireDue(ctx context.Context, r ports.Repos, p *entity.Product, now time.Time) (int, error) {
	active, err := r.Reservations.ListActiveByProduct(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, res := range active {
		if !res.IsExpired(now) {
			continue
		}
		res.Expire(now)
		if err := r.Reservations.Update(ctx, res); err != nil {
			return n, err
		}
		p.ReservedStock = p.ReservedStock.Sub(res.Quantity)
		n++
	}
	if n > 0 {
		l.log.Debug().Str("org", p.OrganizationID).Str("product", p.ID).Int("expired", n).Msg("reservas vencidas liberadas")
	}
	return n, nil
}
