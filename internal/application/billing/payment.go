package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

// PaymentInput pago en la moneda de la factura.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
	PaidAt    *time.Time
}

func (in PaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return domain.Validation("monto del pago debe ser positivo")
	}
	if !in.Amount.Equal(money.RoundMoney(in.Amount)) {
		return domain.Validation("monto con más de %d decimales", money.Scale)
	}
	return nil
}

// RecordPayment registra un pago contra una factura validada: suma paid_amount, recalcula
// payment_status y acredita al cliente el monto convertido, todo en una transacción.
func (o *Orchestrator) RecordPayment(ctx context.Context, org, invoiceID string, in PaymentInput) (*entity.Payment, *entity.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	var (
		pay *entity.Payment
		inv *entity.Invoice
	)
	err := o.run(ctx, "billing.record_payment", org, func(r ports.Repos) error {
		var err error
		inv, err = lockInvoice(ctx, r, org, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != entity.InvoiceValidated {
			return fmt.Errorf("%w: pagos solo sobre facturas validadas (estado %s)", domain.ErrInvalidTransition, inv.Status)
		}
		if in.Amount.GreaterThan(inv.RemainingDue()) {
			return domain.Validation("pago %s supera el saldo pendiente %s", in.Amount, inv.RemainingDue())
		}
		credit, err := money.Convert(in.Amount, inv.ExchangeRate)
		if err != nil {
			return err
		}

		now := o.clock.Now()
		pay = &entity.Payment{
			ID:             uuid.NewString(),
			OrganizationID: org,
			InvoiceID:      inv.ID,
			ClientID:       inv.ClientID,
			Amount:         in.Amount,
			Method:         in.Method,
			Reference:      in.Reference,
			PaidAt:         now,
			CreatedAt:      now,
		}
		if in.PaidAt != nil {
			pay.PaidAt = *in.PaidAt
		}
		if credit.IsPositive() {
			m, err := o.account.AppendInTx(ctx, r, org, account.AppendInput{
				ClientID:    inv.ClientID,
				Amount:      credit.Neg(),
				Source:      entity.PaymentRef(pay.ID),
				Description: "pago factura " + inv.Number,
			})
			if err != nil {
				return err
			}
			pay.AccountMovementID = m.ID
		}
		if err := r.Payments.Create(ctx, pay); err != nil {
			return err
		}

		inv.PaidAmount = inv.PaidAmount.Add(in.Amount)
		inv.RefreshPaymentStatus()
		inv.UpdatedAt = now
		return r.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, nil, err
	}
	return pay, inv, nil
}

// ListPayments pagos de una factura.
func (o *Orchestrator) ListPayments(ctx context.Context, org, invoiceID string) ([]*entity.Payment, error) {
	var out []*entity.Payment
	err := o.tx.Run(ctx, func(r ports.Repos) error {
		if _, err := loadInvoice(ctx, r, org, invoiceID); err != nil {
			return err
		}
		var err error
		out, err = r.Payments.ListByInvoice(ctx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
