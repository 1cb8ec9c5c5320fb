// Package billing orquesta las máquinas de estado de facturas, documentos de compra y
// notas de crédito, y compone los libros de stock, créditos y saldos en una sola
// transacción por operación.
//
// Orden global de bloqueo: nota de crédito < factura < compra < cliente < producto
// (ver ports.PlanLocks). Cada operación bloquea primero el documento y después, en una
// sola llamada, el cliente y los productos que toca.
package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/account"
	"github.com/jhoicas/docledger/internal/application/credit"
	"github.com/jhoicas/docledger/internal/application/inventory"
	"github.com/jhoicas/docledger/internal/application/outcome"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/jhoicas/docledger/pkg/logger"
)

// Config parámetros de la organización por defecto.
type Config struct {
	DefaultStampDuty         decimal.Decimal
	DefaultReferenceCurrency string
}

// Orchestrator punto de entrada de toda mutación de documentos.
type Orchestrator struct {
	tx      ports.TxRunner
	clock   ports.Clock
	log     *logger.Logger
	obs     ports.Observer
	stock   *inventory.StockLedger
	credit  *credit.CreditLedger
	account *account.AccountLedger
	cfg     Config
}

// NewOrchestrator construye el orquestador con los tres libros.
func NewOrchestrator(
	tx ports.TxRunner,
	clock ports.Clock,
	log *logger.Logger,
	obs ports.Observer,
	stock *inventory.StockLedger,
	creditLedger *credit.CreditLedger,
	accountLedger *account.AccountLedger,
	cfg Config,
) *Orchestrator {
	if obs == nil {
		obs = ports.NopObserver{}
	}
	if cfg.DefaultReferenceCurrency == "" {
		cfg.DefaultReferenceCurrency = "COP"
	}
	return &Orchestrator{
		tx:      tx,
		clock:   clock,
		log:     log.Named("orchestrator"),
		obs:     obs,
		stock:   stock,
		credit:  creditLedger,
		account: accountLedger,
		cfg:     cfg,
	}
}

func (o *Orchestrator) run(ctx context.Context, op, org string, fn func(ports.Repos) error) (err error) {
	start := time.Now()
	defer func() { outcome.Report(o.log, o.obs, op, org, start, err) }()
	return o.tx.Run(ctx, fn)
}

// ─── Organizaciones ───────────────────────────────────────────────────────────

// CreateOrganizationInput alta de tenant. StampDutyAmount nil usa el timbre por defecto.
type CreateOrganizationInput struct {
	ID                string
	Name              string
	TaxID             string
	ReferenceCurrency string
	StampDutyAmount   *decimal.Decimal
}

// CreateOrganization registra una organización.
func (o *Orchestrator) CreateOrganization(ctx context.Context, in CreateOrganizationInput) (*entity.Organization, error) {
	if in.Name == "" {
		return nil, domain.Validation("nombre requerido")
	}
	stamp := o.cfg.DefaultStampDuty
	if in.StampDutyAmount != nil {
		stamp = *in.StampDutyAmount
	}
	if stamp.IsNegative() || !stamp.Equal(money.RoundMoney(stamp)) {
		return nil, domain.Validation("timbre fiscal inválido")
	}
	now := o.clock.Now()
	org := &entity.Organization{
		ID:                in.ID,
		Name:              in.Name,
		TaxID:             in.TaxID,
		ReferenceCurrency: strings.ToUpper(in.ReferenceCurrency),
		StampDutyAmount:   stamp,
		Status:            entity.OrganizationActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.ReferenceCurrency == "" {
		org.ReferenceCurrency = o.cfg.DefaultReferenceCurrency
	}
	err := o.run(ctx, "billing.create_organization", org.ID, func(r ports.Repos) error {
		return r.Organizations.Create(ctx, org)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// GetOrganization lectura de la organización del caller.
func (o *Orchestrator) GetOrganization(ctx context.Context, org string) (*entity.Organization, error) {
	var out *entity.Organization
	err := o.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		out, err = loadOrganization(ctx, r, org)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadOrganization(ctx context.Context, r ports.Repos, org string) (*entity.Organization, error) {
	if org == "" {
		return nil, domain.Validation("organization_id requerido")
	}
	out, err := r.Organizations.GetByID(ctx, org)
	if err != nil {
		return nil, err
	}
	if !out.IsActive() {
		return nil, domain.Validation("organización %s no activa", org)
	}
	return out, nil
}

// ─── Documento genérico ───────────────────────────────────────────────────────

// Document resultado de una transición: exactamente uno de los campos viene informado.
type Document struct {
	Invoice    *entity.Invoice
	Purchase   *entity.PurchaseDocument
	CreditNote *entity.CreditNote
}

// TransitionDocument lleva el documento referenciado al estado destino.
// Notas de crédito: "validated" o "cancelled".
func (o *Orchestrator) TransitionDocument(ctx context.Context, org string, ref entity.SourceRef, target string) (*Document, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	switch ref.Kind {
	case entity.SourceInvoice:
		inv, err := o.TransitionInvoice(ctx, org, ref.ID, entity.InvoiceStatus(target))
		if err != nil {
			return nil, err
		}
		return &Document{Invoice: inv}, nil
	case entity.SourcePurchase:
		p, err := o.TransitionPurchaseDocument(ctx, org, ref.ID, entity.PurchaseStatus(target))
		if err != nil {
			return nil, err
		}
		return &Document{Purchase: p}, nil
	case entity.SourceCreditNote:
		var cn *entity.CreditNote
		var err error
		switch entity.CreditNoteStatus(target) {
		case entity.CreditValidated:
			cn, err = o.ValidateCredit(ctx, org, ref.ID)
		case entity.CreditCancelled:
			cn, err = o.CancelCredit(ctx, org, ref.ID)
		default:
			return nil, domain.Transition("nota de crédito", "", target)
		}
		if err != nil {
			return nil, err
		}
		return &Document{CreditNote: cn}, nil
	}
	return nil, domain.Validation("el origen %s no es un documento con estados", ref.Kind)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// LineInput línea recibida del caller. UnitPriceHT cero toma el precio del producto
// y VATRate nil la tasa del producto.
type LineInput struct {
	ProductID       string
	ReservationID   string
	Description     string
	Quantity        decimal.Decimal
	UnitPriceHT     decimal.Decimal
	DiscountPercent decimal.Decimal
	VATRate         *decimal.Decimal
}

// TaxInput configuración fiscal pedida para el documento.
type TaxInput struct {
	StampDuty          bool
	WithholdingApplied bool
	WithholdingRate    decimal.Decimal
	CustomTaxes        []money.CustomTax
}

func (t TaxInput) config(org *entity.Organization) money.TaxConfig {
	return money.TaxConfig{
		StampDutyEnabled:   t.StampDuty,
		StampDutyAmount:    org.StampDutyAmount,
		WithholdingApplied: t.WithholdingApplied,
		WithholdingRate:    t.WithholdingRate,
		CustomTaxes:        t.CustomTaxes,
	}
}

// buildLines resuelve productos (verificando tenant) y completa precio e IVA por defecto.
// Solo un documento con clientID admite reservas, y deben ser activas y de ese cliente.
func buildLines(ctx context.Context, r ports.Repos, org, clientID string, in []LineInput, requireProduct bool) ([]entity.DocumentLine, error) {
	if len(in) == 0 {
		return nil, domain.Validation("el documento requiere al menos una línea")
	}
	lines := make([]entity.DocumentLine, 0, len(in))
	for i, l := range in {
		if l.UnitPriceHT.IsNegative() {
			return nil, domain.Validation("línea %d: precio negativo", i+1)
		}
		line := entity.DocumentLine{
			ID:              uuid.NewString(),
			ProductID:       l.ProductID,
			ReservationID:   l.ReservationID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPriceHT:     l.UnitPriceHT,
			DiscountPercent: l.DiscountPercent,
		}
		if l.VATRate != nil {
			line.VATRate = *l.VATRate
		}
		if l.ProductID == "" {
			if requireProduct || l.ReservationID != "" {
				return nil, domain.Validation("línea %d: product_id requerido", i+1)
			}
			lines = append(lines, line)
			continue
		}
		p, err := r.Products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if err := domain.CheckTenant(org, p.OrganizationID); err != nil {
			return nil, err
		}
		if line.UnitPriceHT.IsZero() {
			line.UnitPriceHT = p.Price
		}
		if l.VATRate == nil {
			line.VATRate = p.VATRate
		}
		if line.Description == "" {
			line.Description = p.Name
		}
		if l.ReservationID != "" {
			if clientID == "" {
				return nil, domain.Validation("línea %d: el documento no admite reservas", i+1)
			}
			res, err := r.Reservations.GetByID(ctx, l.ReservationID)
			if err != nil {
				return nil, err
			}
			if err := domain.CheckTenant(org, res.OrganizationID); err != nil {
				return nil, err
			}
			switch {
			case res.ProductID != p.ID:
				return nil, domain.Validation("línea %d: la reserva no corresponde al producto", i+1)
			case res.ClientID != clientID:
				return nil, domain.Validation("línea %d: la reserva es de otro cliente", i+1)
			case !res.IsActive():
				return nil, domain.Validation("línea %d: la reserva no está activa", i+1)
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// resolveCurrency aplica la moneda de referencia y exige tasa 1 para ella.
func resolveCurrency(org *entity.Organization, currency string, rate decimal.Decimal) (string, decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if currency == "" {
		currency = org.ReferenceCurrency
	}
	if currency == org.ReferenceCurrency {
		if !rate.IsZero() && !rate.Equal(decimal.NewFromInt(1)) {
			return "", decimal.Zero, domain.Validation("la moneda de referencia usa tasa 1")
		}
		return currency, decimal.NewFromInt(1), nil
	}
	if !rate.IsPositive() {
		return "", decimal.Zero, domain.Validation("tasa de cambio requerida para %s", currency)
	}
	return currency, rate, nil
}

func productKeys(lines []entity.DocumentLine) []string {
	keys := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.ProductID != "" {
			keys = append(keys, ports.ProductKey(l.ProductID))
		}
	}
	return keys
}

func documentNumber(prefix, id, given string) string {
	if given != "" {
		return given
	}
	return prefix + "-" + strings.ToUpper(id[:8])
}
