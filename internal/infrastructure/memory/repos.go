package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var (
	_ repository.OrganizationRepository      = organizationRepo{}
	_ repository.ProductRepository           = productRepo{}
	_ repository.ReservationRepository       = reservationRepo{}
	_ repository.StockMovementRepository     = stockMovementRepo{}
	_ repository.ClientRepository            = clientRepo{}
	_ repository.AccountMovementRepository   = accountMovementRepo{}
	_ repository.InvoiceRepository           = invoiceRepo{}
	_ repository.PurchaseRepository          = purchaseRepo{}
	_ repository.CreditNoteRepository        = creditNoteRepo{}
	_ repository.CreditApplicationRepository = creditApplicationRepo{}
	_ repository.PaymentRepository           = paymentRepo{}
)

func found[T any](v T, ok bool) (*T, error) {
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func ptrs[T any](in []T) []*T {
	out := make([]*T, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

// ─── Organizaciones ───────────────────────────────────────────────────────────

type organizationRepo struct{ t *tx }

func (r organizationRepo) Create(_ context.Context, o *entity.Organization) error {
	return r.t.organizations.insert(o.ID, *o)
}

func (r organizationRepo) GetByID(_ context.Context, id string) (*entity.Organization, error) {
	return found(r.t.organizations.get(id))
}

// ─── Productos y reservas ─────────────────────────────────────────────────────

type productRepo struct{ t *tx }

func (r productRepo) Create(_ context.Context, p *entity.Product) error {
	dup := r.t.products.list(func(x entity.Product) bool {
		return x.OrganizationID == p.OrganizationID && x.SKU != "" && x.SKU == p.SKU
	})
	if len(dup) > 0 {
		return domain.ErrDuplicate
	}
	return r.t.products.insert(p.ID, *p)
}

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return found(r.t.products.get(id))
}

// GetForUpdate en memoria equivale a GetByID: el bloqueo lo da Locker.
func (r productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r productRepo) Update(_ context.Context, p *entity.Product) error {
	next := *p
	next.Version++
	if err := r.t.products.update(p.ID, next, p.Version); err != nil {
		return err
	}
	p.Version = next.Version
	return nil
}

func (r productRepo) ListByOrganization(_ context.Context, organizationID string, limit, offset int) ([]*entity.Product, error) {
	all := r.t.products.list(func(p entity.Product) bool { return p.OrganizationID == organizationID })
	return ptrs(page(all, limit, offset)), nil
}

type reservationRepo struct{ t *tx }

func (r reservationRepo) Create(_ context.Context, res *entity.ProductReservation) error {
	return r.t.reservations.insert(res.ID, *res)
}

func (r reservationRepo) GetByID(_ context.Context, id string) (*entity.ProductReservation, error) {
	return found(r.t.reservations.get(id))
}

func (r reservationRepo) Update(_ context.Context, res *entity.ProductReservation) error {
	next := *res
	next.Version++
	if err := r.t.reservations.update(res.ID, next, res.Version); err != nil {
		return err
	}
	res.Version = next.Version
	return nil
}

func (r reservationRepo) ListActiveByProduct(_ context.Context, productID string) ([]*entity.ProductReservation, error) {
	return ptrs(r.t.reservations.list(func(x entity.ProductReservation) bool {
		return x.ProductID == productID && x.IsActive()
	})), nil
}

type stockMovementRepo struct{ t *tx }

func (r stockMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.t.stockMovements.insert(m.ID, *m)
}

func (r stockMovementRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockMovement, error) {
	return ptrs(r.t.stockMovements.list(func(m entity.StockMovement) bool { return m.ProductID == productID })), nil
}

func (r stockMovementRepo) ListBySource(_ context.Context, source entity.SourceRef) ([]*entity.StockMovement, error) {
	return ptrs(r.t.stockMovements.list(func(m entity.StockMovement) bool { return m.Source == source })), nil
}

// ─── Clientes y cuenta corriente ──────────────────────────────────────────────

type clientRepo struct{ t *tx }

func (r clientRepo) Create(_ context.Context, c *entity.Client) error {
	return r.t.clients.insert(c.ID, *c)
}

func (r clientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	return found(r.t.clients.get(id))
}

func (r clientRepo) GetForUpdate(ctx context.Context, id string) (*entity.Client, error) {
	return r.GetByID(ctx, id)
}

func (r clientRepo) Update(_ context.Context, c *entity.Client) error {
	next := *c
	next.Version++
	if err := r.t.clients.update(c.ID, next, c.Version); err != nil {
		return err
	}
	c.Version = next.Version
	return nil
}

type accountMovementRepo struct{ t *tx }

func (r accountMovementRepo) Create(_ context.Context, m *entity.ClientAccountMovement) error {
	return r.t.accountMovements.insert(m.ID, *m)
}

func (r accountMovementRepo) GetByID(_ context.Context, id string) (*entity.ClientAccountMovement, error) {
	return found(r.t.accountMovements.get(id))
}

func (r accountMovementRepo) Last(ctx context.Context, clientID string) (*entity.ClientAccountMovement, error) {
	list, err := r.ListByClient(ctx, clientID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[len(list)-1], nil
}

func (r accountMovementRepo) ListByClient(_ context.Context, clientID string) ([]*entity.ClientAccountMovement, error) {
	list := r.t.accountMovements.list(func(m entity.ClientAccountMovement) bool { return m.ClientID == clientID })
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].MovementDate.Equal(list[j].MovementDate) {
			return list[i].MovementDate.Before(list[j].MovementDate)
		}
		return list[i].Sequence < list[j].Sequence
	})
	return ptrs(list), nil
}

func (r accountMovementRepo) FindCompensation(_ context.Context, movementID string) (*entity.ClientAccountMovement, error) {
	list := r.t.accountMovements.list(func(m entity.ClientAccountMovement) bool { return m.ReferenceNumber == movementID })
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// ─── Documentos ───────────────────────────────────────────────────────────────

type invoiceRepo struct{ t *tx }

func (r invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	return r.t.invoices.insert(inv.ID, *inv)
}

func (r invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	return found(r.t.invoices.get(id))
}

func (r invoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r invoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	next := *inv
	next.Version++
	if err := r.t.invoices.update(inv.ID, next, inv.Version); err != nil {
		return err
	}
	inv.Version = next.Version
	return nil
}

func (r invoiceRepo) ListByClient(_ context.Context, clientID string) ([]*entity.Invoice, error) {
	return ptrs(r.t.invoices.list(func(inv entity.Invoice) bool { return inv.ClientID == clientID })), nil
}

type purchaseRepo struct{ t *tx }

func (r purchaseRepo) Create(_ context.Context, p *entity.PurchaseDocument) error {
	return r.t.purchases.insert(p.ID, *p)
}

func (r purchaseRepo) GetByID(_ context.Context, id string) (*entity.PurchaseDocument, error) {
	return found(r.t.purchases.get(id))
}

func (r purchaseRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseDocument, error) {
	return r.GetByID(ctx, id)
}

func (r purchaseRepo) Update(_ context.Context, p *entity.PurchaseDocument) error {
	next := *p
	next.Version++
	if err := r.t.purchases.update(p.ID, next, p.Version); err != nil {
		return err
	}
	p.Version = next.Version
	return nil
}

// ─── Créditos ─────────────────────────────────────────────────────────────────

type creditNoteRepo struct{ t *tx }

func (r creditNoteRepo) Create(_ context.Context, cn *entity.CreditNote) error {
	return r.t.creditNotes.insert(cn.ID, *cn)
}

func (r creditNoteRepo) GetByID(_ context.Context, id string) (*entity.CreditNote, error) {
	return found(r.t.creditNotes.get(id))
}

func (r creditNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error) {
	return r.GetByID(ctx, id)
}

func (r creditNoteRepo) Update(_ context.Context, cn *entity.CreditNote) error {
	next := *cn
	next.Version++
	if err := r.t.creditNotes.update(cn.ID, next, cn.Version); err != nil {
		return err
	}
	cn.Version = next.Version
	return nil
}

func (r creditNoteRepo) ListBySource(_ context.Context, source entity.SourceRef) ([]*entity.CreditNote, error) {
	return ptrs(r.t.creditNotes.list(func(cn entity.CreditNote) bool { return cn.Source == source })), nil
}

func (r creditNoteRepo) ListByParty(_ context.Context, organizationID, partyID string) ([]*entity.CreditNote, error) {
	return ptrs(r.t.creditNotes.list(func(cn entity.CreditNote) bool {
		return cn.OrganizationID == organizationID && cn.PartyID == partyID
	})), nil
}

type creditApplicationRepo struct{ t *tx }

func (r creditApplicationRepo) Create(_ context.Context, a *entity.CreditApplication) error {
	return r.t.creditApplications.insert(a.ID, *a)
}

func (r creditApplicationRepo) ListByCreditNote(_ context.Context, creditNoteID string) ([]*entity.CreditApplication, error) {
	return ptrs(r.t.creditApplications.list(func(a entity.CreditApplication) bool { return a.CreditNoteID == creditNoteID })), nil
}

func (r creditApplicationRepo) ListByTarget(_ context.Context, target entity.SourceRef) ([]*entity.CreditApplication, error) {
	return ptrs(r.t.creditApplications.list(func(a entity.CreditApplication) bool { return a.Target == target })), nil
}

type paymentRepo struct{ t *tx }

func (r paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	return r.t.payments.insert(p.ID, *p)
}

func (r paymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.Payment, error) {
	return ptrs(r.t.payments.list(func(p entity.Payment) bool { return p.InvoiceID == invoiceID })), nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
