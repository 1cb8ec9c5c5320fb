package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

// CreatePurchaseInput factura de proveedor. Toda línea referencia un producto.
type CreatePurchaseInput struct {
	SupplierID   string
	Number       string
	Currency     string
	ExchangeRate decimal.Decimal
	Date         *time.Time
	Taxes        TaxInput
	Lines        []LineInput
}

// CreatePurchaseDocument registra el documento en pending con totales congelados.
func (o *Orchestrator) CreatePurchaseDocument(ctx context.Context, org string, in CreatePurchaseInput) (*entity.PurchaseDocument, error) {
	if in.SupplierID == "" {
		return nil, domain.Validation("supplier_id requerido")
	}
	for i, l := range in.Lines {
		if l.ReservationID != "" {
			return nil, domain.Validation("línea %d: las compras no consumen reservas", i+1)
		}
	}
	var doc *entity.PurchaseDocument
	err := o.run(ctx, "billing.create_purchase", org, func(r ports.Repos) error {
		orgEntity, err := loadOrganization(ctx, r, org)
		if err != nil {
			return err
		}
		currency, rate, err := resolveCurrency(orgEntity, in.Currency, in.ExchangeRate)
		if err != nil {
			return err
		}
		lines, err := buildLines(ctx, r, org, "", in.Lines, true)
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
		doc = &entity.PurchaseDocument{
			ID:             id,
			OrganizationID: org,
			SupplierID:     in.SupplierID,
			Number:         documentNumber("FC", id, in.Number),
			Status:         entity.PurchasePending,
			Currency:       currency,
			ExchangeRate:   rate,
			Taxes:          taxes,
			Totals:         totals,
			Lines:          lines,
			CreditIssued:   decimal.Zero,
			Date:           date,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return r.Purchases.Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetPurchaseDocument lectura de un documento de compra.
func (o *Orchestrator) GetPurchaseDocument(ctx context.Context, org, id string) (*entity.PurchaseDocument, error) {
	var doc *entity.PurchaseDocument
	err := o.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		doc, err = loadPurchase(ctx, r, org, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// TransitionPurchaseDocument validar ingresa el stock al costo de compra (en moneda de
// referencia); anular un documento validado retira ese stock.
func (o *Orchestrator) TransitionPurchaseDocument(ctx context.Context, org, id string, target entity.PurchaseStatus) (*entity.PurchaseDocument, error) {
	var doc *entity.PurchaseDocument
	err := o.run(ctx, "billing.transition_purchase", org, func(r ports.Repos) error {
		var err error
		doc, err = lockPurchase(ctx, r, org, id)
		if err != nil {
			return err
		}
		if !doc.CanTransition(target) {
			return domain.Transition("documento de compra", string(doc.Status), string(target))
		}
		now := o.clock.Now()
		source := entity.PurchaseRef(doc.ID)

		switch target {
		case entity.PurchaseValidated:
			if err := r.Locks.Lock(ctx, productKeys(doc.Lines)...); err != nil {
				return err
			}
			for i, line := range doc.Lines {
				unitCost, err := lineUnitCost(line, doc.ExchangeRate)
				if err != nil {
					return err
				}
				_, err = o.stock.ApplyMovementInTx(ctx, r, org, inventory.MovementInput{
					ProductID: line.ProductID,
					Type:      entity.MovementAdd,
					Quantity:  line.Quantity,
					UnitCost:  unitCost,
					Reason:    entity.ReasonPurchaseReceipt,
					Source:    source,
				})
				if err != nil {
					return fmt.Errorf("línea %d: %w", i+1, err)
				}
			}
			doc.ValidatedAt = &now
		case entity.PurchaseCancelled:
			if doc.Status == entity.PurchaseValidated {
				if doc.CreditIssued.IsPositive() || doc.Totals.TotalCredited.IsPositive() {
					return fmt.Errorf("%w: documento %s tiene créditos", domain.ErrInvalidTransition, doc.ID)
				}
				if err := r.Locks.Lock(ctx, productKeys(doc.Lines)...); err != nil {
					return err
				}
				if err := o.reverseMovements(ctx, r, org, source, entity.MovementAdd, entity.ReasonPurchaseCancellation); err != nil {
					return err
				}
			}
			doc.CancelledAt = &now
		}
		doc.Status = target
		doc.UpdatedAt = now
		return r.Purchases.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// lineUnitCost costo unitario neto de descuento, sin IVA, en moneda de referencia.
func lineUnitCost(line entity.DocumentLine, rate decimal.Decimal) (decimal.Decimal, error) {
	ht, err := money.Convert(line.LineTotalHT, rate)
	if err != nil {
		return decimal.Zero, err
	}
	return money.RoundMoney(ht.Div(line.Quantity)), nil
}

func lockPurchase(ctx context.Context, r ports.Repos, org, id string) (*entity.PurchaseDocument, error) {
	if id == "" {
		return nil, domain.Validation("purchase_document_id requerido")
	}
	if err := r.Locks.Lock(ctx, ports.PurchaseKey(id)); err != nil {
		return nil, err
	}
	doc, err := r.Purchases.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, doc.OrganizationID); err != nil {
		return nil, err
	}
	return doc, nil
}

func loadPurchase(ctx context.Context, r ports.Repos, org, id string) (*entity.PurchaseDocument, error) {
	doc, err := r.Purchases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, doc.OrganizationID); err != nil {
		return nil, err
	}
	return doc, nil
}
