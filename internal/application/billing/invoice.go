package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

// CreateInvoiceInput datos de una factura nueva. Status vacío crea en "created".
type CreateInvoiceInput struct {
	ClientID     string
	Number       string
	Currency     string
	ExchangeRate decimal.Decimal
	Date         *time.Time
	Status       entity.InvoiceStatus
	Taxes        TaxInput
	Lines        []LineInput
}

// CreateInvoice registra la factura con sus totales congelados. No toca stock ni saldos.
func (o *Orchestrator) CreateInvoice(ctx context.Context, org string, in CreateInvoiceInput) (*entity.Invoice, error) {
	if in.ClientID == "" {
		return nil, domain.Validation("client_id requerido")
	}
	status := in.Status
	if status == "" {
		status = entity.InvoiceCreated
	}
	if status != entity.InvoiceCreated && status != entity.InvoiceDraft {
		return nil, domain.Validation("una factura nueva nace en created o draft")
	}

	var inv *entity.Invoice
	err := o.run(ctx, "billing.create_invoice", org, func(r ports.Repos) error {
		orgEntity, err := loadOrganization(ctx, r, org)
		if err != nil {
			return err
		}
		if _, err := account.LoadClient(ctx, r, org, in.ClientID); err != nil {
			return err
		}
		currency, rate, err := resolveCurrency(orgEntity, in.Currency, in.ExchangeRate)
		if err != nil {
			return err
		}
		lines, err := buildLines(ctx, r, org, in.ClientID, in.Lines, false)
		if err != nil {
			return err
		}
		taxes := in.Taxes.config(orgEntity)
		totals, err := entity.FreezeTotals(lines, taxes)
		if err != nil {
			return err
		}

		now := o.clock.Now()
		date := now
		if in.Date != nil {
			date = *in.Date
		}
		id := uuid.NewString()
		inv = &entity.Invoice{
			ID:             id,
			OrganizationID: org,
			ClientID:       in.ClientID,
			Number:         documentNumber("FV", id, in.Number),
			Status:         status,
			Currency:       currency,
			ExchangeRate:   rate,
			Taxes:          taxes,
			Totals:         totals,
			Lines:          lines,
			PaidAmount:     decimal.Zero,
			CreditIssued:   decimal.Zero,
			Date:           date,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		inv.RefreshPaymentStatus()
		return r.Invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoice lectura de una factura.
func (o *Orchestrator) GetInvoice(ctx context.Context, org, id string) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := o.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		inv, err = loadInvoice(ctx, r, org, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListClientInvoices facturas de un cliente.
func (o *Orchestrator) ListClientInvoices(ctx context.Context, org, clientID string) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	err := o.tx.Run(ctx, func(r ports.Repos) error {
		if _, err := account.LoadClient(ctx, r, org, clientID); err != nil {
			return err
		}
		var err error
		out, err = r.Invoices.ListByClient(ctx, clientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionInvoice aplica la máquina de estados de la factura con todos sus efectos
// (stock, saldo del cliente) en una sola transacción: o se aplica todo o nada.
func (o *Orchestrator) TransitionInvoice(ctx context.Context, org, id string, target entity.InvoiceStatus) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := o.run(ctx, "billing.transition_invoice", org, func(r ports.Repos) error {
		var err error
		inv, err = o.transitionInvoiceInTx(ctx, r, org, id, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (o *Orchestrator) transitionInvoiceInTx(ctx context.Context, r ports.Repos, org, id string, target entity.InvoiceStatus) (*entity.Invoice, error) {
	inv, err := lockInvoice(ctx, r, org, id)
	if err != nil {
		return nil, err
	}
	if !inv.CanTransition(target) {
		return nil, domain.Transition("factura", string(inv.Status), string(target))
	}
	now := o.clock.Now()

	switch target {
	case entity.InvoiceDraft:
	case entity.InvoiceValidated:
		if err := o.validateInvoice(ctx, r, org, inv, now); err != nil {
			return nil, err
		}
	case entity.InvoiceCancelled:
		if err := o.cancelInvoice(ctx, r, org, inv); err != nil {
			return nil, err
		}
		inv.CancelledAt = &now
	case entity.InvoiceProductReturnTotal:
		if inv.CreditIssued.LessThan(inv.Totals.TotalTTC) {
			return nil, fmt.Errorf("%w: factura %s no está totalmente acreditada", domain.ErrInvalidTransition, inv.ID)
		}
	}

	inv.Status = target
	inv.UpdatedAt = now
	if err := r.Invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// validateInvoice consume reservas o descuenta stock por línea y debita al cliente
// el neto a pagar convertido a moneda de referencia.
func (o *Orchestrator) validateInvoice(ctx context.Context, r ports.Repos, org string, inv *entity.Invoice, now time.Time) error {
	totals, err := entity.FreezeTotals(inv.Lines, inv.Taxes)
	if err != nil {
		return err
	}
	inv.Totals = totals.WithCredited(inv.Totals.TotalCredited)

	keys := append([]string{ports.ClientKey(inv.ClientID)}, productKeys(inv.Lines)...)
	if err := r.Locks.Lock(ctx, keys...); err != nil {
		return err
	}
	if _, err := account.LoadClient(ctx, r, org, inv.ClientID); err != nil {
		return err
	}

	source := entity.InvoiceRef(inv.ID)
	for i, line := range inv.Lines {
		if line.ProductID == "" {
			continue
		}
		if line.ReservationID != "" {
			if err := checkReservation(ctx, r, inv, line, i); err != nil {
				return err
			}
			if _, err := o.stock.ConsumeInTx(ctx, r, org, line.ReservationID, source); err != nil {
				return err
			}
			continue
		}
		_, err := o.stock.ApplyMovementInTx(ctx, r, org, inventory.MovementInput{
			ProductID: line.ProductID,
			Type:      entity.MovementRemove,
			Quantity:  line.Quantity,
			Reason:    entity.ReasonSale,
			Source:    source,
		})
		if err != nil {
			return fmt.Errorf("línea %d: %w", i+1, err)
		}
	}

	debit, err := money.Convert(inv.Totals.NetPayable, inv.ExchangeRate)
	if err != nil {
		return err
	}
	if !debit.IsZero() {
		m, err := o.account.AppendInTx(ctx, r, org, account.AppendInput{
			ClientID:    inv.ClientID,
			Amount:      debit,
			Source:      source,
			Description: "factura " + inv.Number,
		})
		if err != nil {
			return err
		}
		inv.DebitMovementID = m.ID
	}
	inv.ValidatedAt = &now
	inv.RefreshPaymentStatus()
	return nil
}

// checkReservation exige que la reserva sea del mismo producto, cliente y cantidad que la línea.
func checkReservation(ctx context.Context, r ports.Repos, inv *entity.Invoice, line entity.DocumentLine, i int) error {
	res, err := r.Reservations.GetByID(ctx, line.ReservationID)
	if err != nil {
		return err
	}
	if err := domain.CheckTenant(inv.OrganizationID, res.OrganizationID); err != nil {
		return err
	}
	switch {
	case res.ProductID != line.ProductID:
		return domain.Validation("línea %d: la reserva no corresponde al producto", i+1)
	case res.ClientID != inv.ClientID:
		return domain.Validation("línea %d: la reserva es de otro cliente", i+1)
	case !res.Quantity.Equal(line.Quantity):
		return domain.Validation("línea %d: cantidad %s distinta de la reservada %s", i+1, line.Quantity, res.Quantity)
	}
	return nil
}

// cancelInvoice sin validar libera las reservas de sus líneas; validada, devuelve el stock
// descontado y compensa el débito. Una factura con pagos o créditos no se anula.
func (o *Orchestrator) cancelInvoice(ctx context.Context, r ports.Repos, org string, inv *entity.Invoice) error {
	if inv.IsEditable() {
		return o.releaseReservations(ctx, r, org, inv)
	}
	if inv.PaidAmount.IsPositive() || inv.CreditIssued.IsPositive() || inv.Totals.TotalCredited.IsPositive() {
		return fmt.Errorf("%w: factura %s tiene pagos o créditos", domain.ErrInvalidTransition, inv.ID)
	}

	keys := append([]string{ports.ClientKey(inv.ClientID)}, productKeys(inv.Lines)...)
	if err := r.Locks.Lock(ctx, keys...); err != nil {
		return err
	}
	source := entity.InvoiceRef(inv.ID)
	if err := o.reverseMovements(ctx, r, org, source, entity.MovementRemove, entity.ReasonInvoiceCancellation); err != nil {
		return err
	}
	if inv.DebitMovementID != "" {
		if _, err := o.account.CompensateInTx(ctx, r, org, inv.DebitMovementID, "anulación factura "+inv.Number); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) releaseReservations(ctx context.Context, r ports.Repos, org string, inv *entity.Invoice) error {
	var keys []string
	for _, l := range inv.Lines {
		if l.ReservationID != "" {
			keys = append(keys, ports.ProductKey(l.ProductID))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.Locks.Lock(ctx, keys...); err != nil {
		return err
	}
	for _, l := range inv.Lines {
		if l.ReservationID == "" {
			continue
		}
		res, err := r.Reservations.GetByID(ctx, l.ReservationID)
		if err != nil {
			return err
		}
		// solo se liberan las reservas del cliente de la factura
		if res.ClientID != inv.ClientID {
			continue
		}
		if _, err := o.stock.ReleaseInTx(ctx, r, org, l.ReservationID); err != nil {
			return err
		}
	}
	return nil
}

// reverseMovements registra el movimiento opuesto de cada movimiento `typ` del origen.
// El caller ya tiene los bloqueos de los productos involucrados.
func (o *Orchestrator) reverseMovements(ctx context.Context, r ports.Repos, org string, source entity.SourceRef, typ entity.MovementType, reason entity.MovementReason) error {
	movs, err := r.StockMovements.ListBySource(ctx, source)
	if err != nil {
		return err
	}
	opposite := entity.MovementAdd
	if typ == entity.MovementAdd {
		opposite = entity.MovementRemove
	}
	for _, m := range movs {
		if m.MovementType != typ {
			continue
		}
		_, err := o.stock.ApplyMovementInTx(ctx, r, org, inventory.MovementInput{
			ProductID: m.ProductID,
			Type:      opposite,
			Quantity:  m.Quantity,
			Reason:    reason,
			Source:    source,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func lockInvoice(ctx context.Context, r ports.Repos, org, id string) (*entity.Invoice, error) {
	if id == "" {
		return nil, domain.Validation("invoice_id requerido")
	}
	if err := r.Locks.Lock(ctx, ports.InvoiceKey(id)); err != nil {
		return nil, err
	}
	inv, err := r.Invoices.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, inv.OrganizationID); err != nil {
		return nil, err
	}
	return inv, nil
}

func loadInvoice(ctx context.Context, r ports.Repos, org, id string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, inv.OrganizationID); err != nil {
		return nil, err
	}
	return inv, nil
}
