// Package memory implementa los puertos de persistencia en memoria con la misma semántica
// transaccional que PostgreSQL: bloqueos por entidad hasta el fin de la transacción,
// escrituras diferidas hasta el Commit y verificación de versión al confirmar.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
)

var _ ports.TxRunner = (*Store)(nil)

// Store base de datos en memoria. Es seguro para uso concurrente.
type Store struct {
	mu    sync.RWMutex
	locks *keyLocks

	organizations      *table[entity.Organization]
	products           *table[entity.Product]
	reservations       *table[entity.ProductReservation]
	stockMovements     *table[entity.StockMovement]
	clients            *table[entity.Client]
	accountMovements   *table[entity.ClientAccountMovement]
	invoices           *table[entity.Invoice]
	purchases          *table[entity.PurchaseDocument]
	creditNotes        *table[entity.CreditNote]
	creditApplications *table[entity.CreditApplication]
	payments           *table[entity.Payment]
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		locks:              newKeyLocks(),
		organizations:      newTable[entity.Organization](nil, nil),
		products:           newTable[entity.Product](nil, func(p entity.Product) int { return p.Version }).withUnique(productSKU),
		reservations:       newTable[entity.ProductReservation](nil, func(r entity.ProductReservation) int { return r.Version }),
		stockMovements:     newTable[entity.StockMovement](nil, nil),
		clients:            newTable[entity.Client](nil, func(c entity.Client) int { return c.Version }),
		accountMovements:   newTable[entity.ClientAccountMovement](nil, nil),
		invoices:           newTable(cloneInvoice, func(i entity.Invoice) int { return i.Version }),
		purchases:          newTable(clonePurchase, func(p entity.PurchaseDocument) int { return p.Version }),
		creditNotes:        newTable(cloneCreditNote, func(c entity.CreditNote) int { return c.Version }),
		creditApplications: newTable[entity.CreditApplication](nil, nil),
		payments:           newTable[entity.Payment](nil, nil),
	}
}

// Run ejecuta fn en una transacción. Los cambios se confirman solo si fn devuelve nil
// y ninguna fila actualizada cambió de versión desde que se leyó.
func (s *Store) Run(ctx context.Context, fn func(repos ports.Repos) error) error {
	t := s.begin()
	defer t.releaseLocks()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(t.repos()); err != nil {
		return err
	}
	return t.commit()
}

type tx struct {
	store *Store
	held  map[string]struct{}
	order []string

	organizations      *staged[entity.Organization]
	products           *staged[entity.Product]
	reservations       *staged[entity.ProductReservation]
	stockMovements     *staged[entity.StockMovement]
	clients            *staged[entity.Client]
	accountMovements   *staged[entity.ClientAccountMovement]
	invoices           *staged[entity.Invoice]
	purchases          *staged[entity.PurchaseDocument]
	creditNotes        *staged[entity.CreditNote]
	creditApplications *staged[entity.CreditApplication]
	payments           *staged[entity.Payment]
}

func (s *Store) begin() *tx {
	return &tx{
		store:              s,
		held:               make(map[string]struct{}),
		organizations:      newStaged(s.organizations, &s.mu),
		products:           newStaged(s.products, &s.mu),
		reservations:       newStaged(s.reservations, &s.mu),
		stockMovements:     newStaged(s.stockMovements, &s.mu),
		clients:            newStaged(s.clients, &s.mu),
		accountMovements:   newStaged(s.accountMovements, &s.mu),
		invoices:           newStaged(s.invoices, &s.mu),
		purchases:          newStaged(s.purchases, &s.mu),
		creditNotes:        newStaged(s.creditNotes, &s.mu),
		creditApplications: newStaged(s.creditApplications, &s.mu),
		payments:           newStaged(s.payments, &s.mu),
	}
}

// Lock implementa ports.Locker.
func (t *tx) Lock(ctx context.Context, keys ...string) error {
	plan, err := ports.PlanLocks(t.held, keys)
	if err != nil {
		return err
	}
	for _, k := range plan {
		if err := t.store.locks.acquire(ctx, k); err != nil {
			return err
		}
		t.held[k] = struct{}{}
		t.order = append(t.order, k)
	}
	return nil
}

func (t *tx) releaseLocks() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.locks.release(t.order[i])
	}
	t.order = nil
	t.held = map[string]struct{}{}
}

type stagedTable interface {
	validate() error
	apply()
}

func (t *tx) tables() []stagedTable {
	return []stagedTable{
		t.organizations, t.products, t.reservations, t.stockMovements, t.clients,
		t.accountMovements, t.invoices, t.purchases, t.creditNotes, t.creditApplications, t.payments,
	}
}

func (t *tx) commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tables := t.tables()
	for _, tb := range tables {
		if err := tb.validate(); err != nil {
			return err
		}
	}
	for _, tb := range tables {
		tb.apply()
	}
	return nil
}

func (t *tx) repos() ports.Repos {
	return ports.Repos{
		Organizations:      organizationRepo{t},
		Products:           productRepo{t},
		Reservations:       reservationRepo{t},
		StockMovements:     stockMovementRepo{t},
		Clients:            clientRepo{t},
		AccountMovements:   accountMovementRepo{t},
		Invoices:           invoiceRepo{t},
		Purchases:          purchaseRepo{t},
		CreditNotes:        creditNoteRepo{t},
		CreditApplications: creditApplicationRepo{t},
		Payments:           paymentRepo{t},
		Locks:              t,
	}
}

// productSKU clave (organización, sku) de productos.
func productSKU(p entity.Product) string {
	if p.SKU == "" {
		return ""
	}
	return p.OrganizationID + "/" + p.SKU
}

func cloneLines(in []entity.DocumentLine) []entity.DocumentLine {
	if in == nil {
		return nil
	}
	out := make([]entity.DocumentLine, len(in))
	copy(out, in)
	return out
}

func cloneTaxes(in money.TaxConfig) money.TaxConfig {
	if in.CustomTaxes != nil {
		in.CustomTaxes = append([]money.CustomTax(nil), in.CustomTaxes...)
	}
	return in
}

func cloneTotals(in money.DocumentTotals) money.DocumentTotals {
	if in.CustomTaxes != nil {
		in.CustomTaxes = append([]money.CustomTaxAmount(nil), in.CustomTaxes...)
	}
	return in
}

func cloneInvoice(v entity.Invoice) entity.Invoice {
	v.Lines = cloneLines(v.Lines)
	v.Taxes = cloneTaxes(v.Taxes)
	v.Totals = cloneTotals(v.Totals)
	return v
}

func clonePurchase(v entity.PurchaseDocument) entity.PurchaseDocument {
	v.Lines = cloneLines(v.Lines)
	v.Taxes = cloneTaxes(v.Taxes)
	v.Totals = cloneTotals(v.Totals)
	return v
}

func cloneCreditNote(v entity.CreditNote) entity.CreditNote {
	v.Lines = cloneLines(v.Lines)
	return v
}
