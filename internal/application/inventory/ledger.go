// Package inventory implementa el libro de stock: reservas y movimientos por producto.
//
// Toda mutación de un producto (y de sus reservas) ocurre bajo el bloqueo de ese producto.
// Las operaciones …InTx usan los repositorios de la transacción del caller para que la
// orquestación de documentos pueda componerlas en una sola unidad atómica.
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/outcome"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/pkg/logger"
)

// DefaultReservationTTL vigencia de una reserva sin fecha de expiración explícita.
const DefaultReservationTTL = 30 * time.Minute

// StockLedger servicio dueño de current_stock/reserved_stock.
type StockLedger struct {
	tx             ports.TxRunner
	clock          ports.Clock
	log            *logger.Logger
	obs            ports.Observer
	reservationTTL time.Duration
}

// NewStockLedger construye el libro de stock. ttl <= 0 usa DefaultReservationTTL.
func NewStockLedger(tx ports.TxRunner, clock ports.Clock, log *logger.Logger, obs ports.Observer, ttl time.Duration) *StockLedger {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if obs == nil {
		obs = ports.NopObserver{}
	}
	return &StockLedger{tx: tx, clock: clock, log: log.Named("stock_ledger"), obs: obs, reservationTTL: ttl}
}

// CreateProductInput alta de producto; el stock inicial se registra como movimiento.
type CreateProductInput struct {
	SKU                 string
	Name                string
	Price               decimal.Decimal
	Cost                decimal.Decimal
	VATRate             decimal.Decimal
	InitialStock        decimal.Decimal
	UnlimitedStock      bool
	AllowOutOfStockSale bool
}

// ReserveInput reserva de stock para un cliente. ExpiresAt nil usa la vigencia por defecto.
type ReserveInput struct {
	ProductID string
	ClientID  string
	Quantity  decimal.Decimal
	ExpiresAt *time.Time
}

// MovementInput movimiento directo fuera del flujo de reservas.
// UnitCost solo aplica a entradas y actualiza el costo promedio ponderado.
type MovementInput struct {
	ProductID string
	Type      entity.MovementType
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	Reason    entity.MovementReason
	Source    entity.SourceRef
}

func (in MovementInput) validate() error {
	if in.ProductID == "" {
		return domain.Validation("product_id requerido")
	}
	if in.Type != entity.MovementAdd && in.Type != entity.MovementRemove {
		return domain.Validation("tipo de movimiento desconocido %q", in.Type)
	}
	if err := checkQuantity(in.Quantity); err != nil {
		return err
	}
	if in.UnitCost.IsNegative() {
		return domain.Validation("costo unitario negativo")
	}
	if in.Reason == "" {
		return domain.Validation("motivo requerido")
	}
	if !in.Source.IsZero() {
		return in.Source.Validate()
	}
	return nil
}

func checkQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.Validation("cantidad debe ser positiva")
	}
	return nil
}

func (l *StockLedger) run(ctx context.Context, op, org string, fn func(ports.Repos) error) (err error) {
	start := time.Now()
	defer func() { outcome.Report(l.log, l.obs, op, org, start, err) }()
	return l.tx.Run(ctx, fn)
}

// CreateProduct registra un producto nuevo con su stock inicial.
func (l *StockLedger) CreateProduct(ctx context.Context, org string, in CreateProductInput) (*entity.Product, error) {
	if org == "" {
		return nil, domain.Validation("organization_id requerido")
	}
	if in.SKU == "" || in.Name == "" {
		return nil, domain.Validation("sku y nombre requeridos")
	}
	if in.InitialStock.IsNegative() || in.Price.IsNegative() || in.Cost.IsNegative() || in.VATRate.IsNegative() {
		return nil, domain.Validation("valores negativos no permitidos")
	}
	now := l.clock.Now()
	p := &entity.Product{
		ID:                  uuid.NewString(),
		OrganizationID:      org,
		SKU:                 in.SKU,
		Name:                in.Name,
		Price:               in.Price,
		Cost:                in.Cost,
		VATRate:             in.VATRate,
		UnlimitedStock:      in.UnlimitedStock,
		AllowOutOfStockSale: in.AllowOutOfStockSale,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err := l.run(ctx, "stock.create_product", org, func(r ports.Repos) error {
		if err := r.Products.Create(ctx, p); err != nil {
			return err
		}
		if !in.InitialStock.IsPositive() {
			return nil
		}
		_, err := l.ApplyMovementInTx(ctx, r, org, MovementInput{
			ProductID: p.ID,
			Type:      entity.MovementAdd,
			Quantity:  in.InitialStock,
			UnitCost:  in.Cost,
			Reason:    entity.ReasonManualAdjustment,
			Source:    entity.ManualRef(p.ID),
		})
		if err != nil {
			return err
		}
		created, err := r.Products.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		*p = *created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct lectura del último estado confirmado.
func (l *StockLedger) GetProduct(ctx context.Context, org, id string) (*entity.Product, error) {
	var p *entity.Product
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		p, err = loadProduct(ctx, r, org, id)
		return err
	})
	return p, err
}

// ListProducts productos de la organización.
func (l *StockLedger) ListProducts(ctx context.Context, org string, limit, offset int) ([]*entity.Product, error) {
	if org == "" {
		return nil, domain.Validation("organization_id requerido")
	}
	var list []*entity.Product
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		list, err = r.Products.ListByOrganization(ctx, org, limit, offset)
		return err
	})
	return list, err
}

// Reserve abre su propia transacción; ver ReserveInTx.
func (l *StockLedger) Reserve(ctx context.Context, org string, in ReserveInput) (*entity.ProductReservation, error) {
	var res *entity.ProductReservation
	err := l.run(ctx, "stock.reserve", org, func(r ports.Repos) error {
		var err error
		res, err = l.ReserveInTx(ctx, r, org, in)
		return err
	})
	return res, err
}

// ReleaseReservation abre su propia transacción; ver ReleaseInTx.
func (l *StockLedger) ReleaseReservation(ctx context.Context, org, reservationID string) (*entity.ProductReservation, error) {
	var res *entity.ProductReservation
	err := l.run(ctx, "stock.release", org, func(r ports.Repos) error {
		var err error
		res, err = l.ReleaseInTx(ctx, r, org, reservationID)
		return err
	})
	return res, err
}

// ConsumeReservation abre su propia transacción; ver ConsumeInTx.
func (l *StockLedger) ConsumeReservation(ctx context.Context, org, reservationID string, source entity.SourceRef) (*entity.StockMovement, error) {
	var mov *entity.StockMovement
	err := l.run(ctx, "stock.consume", org, func(r ports.Repos) error {
		var err error
		mov, err = l.ConsumeInTx(ctx, r, org, reservationID, source)
		return err
	})
	return mov, err
}

// ApplyMovement abre su propia transacción; ver ApplyMovementInTx.
func (l *StockLedger) ApplyMovement(ctx context.Context, org string, in MovementInput) (*entity.StockMovement, error) {
	var mov *entity.StockMovement
	err := l.run(ctx, "stock.apply_movement", org, func(r ports.Repos) error {
		var err error
		mov, err = l.ApplyMovementInTx(ctx, r, org, in)
		return err
	})
	return mov, err
}

// Movements log de movimientos del producto en orden de inserción.
func (l *StockLedger) Movements(ctx context.Context, org, productID string) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		p, err := loadProduct(ctx, r, org, productID)
		if err != nil {
			return err
		}
		list, err = r.StockMovements.ListByProduct(ctx, p.ID)
		return err
	})
	return list, err
}

// SweepExpired vence las reservas expiradas del producto; devuelve cuántas venció.
func (l *StockLedger) SweepExpired(ctx context.Context, org, productID string) (int, error) {
	var n int
	err := l.run(ctx, "stock.sweep_expired", org, func(r ports.Repos) error {
		if err := r.Locks.Lock(ctx, ports.ProductKey(productID)); err != nil {
			return err
		}
		p, err := lockedProduct(ctx, r, org, productID)
		if err != nil {
			return err
		}
		n, err = l.expireDue(ctx, r, p, l.clock.Now())
		if err != nil || n == 0 {
			return err
		}
		return saveProduct(ctx, r, p, l.clock.Now())
	})
	return n, err
}

func loadProduct(ctx context.Context, r ports.Repos, org, id string) (*entity.Product, error) {
	if id == "" {
		return nil, domain.Validation("product_id requerido")
	}
	p, err := r.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, p.OrganizationID); err != nil {
		return nil, err
	}
	return p, nil
}

// lockedProduct carga el producto para escritura; el caller ya tomó ProductKey.
func lockedProduct(ctx context.Context, r ports.Repos, org, id string) (*entity.Product, error) {
	p, err := r.Products.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, p.OrganizationID); err != nil {
		return nil, err
	}
	return p, nil
}

func saveProduct(ctx context.Context, r ports.Repos, p *entity.Product, now time.Time) error {
	if err := p.CheckInvariants(); err != nil {
		return err
	}
	p.UpdatedAt = now
	return r.Products.Update(ctx, p)
}
