// Package account implementa el libro de saldos por cliente: una secuencia append-only
// de movimientos cuyo balance_after acumulado es la verdad del saldo del cliente.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/outcome"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/jhoicas/docledger/pkg/logger"
)

// AccountLedger servicio dueño de account_balance y de los movimientos de cuenta.
type AccountLedger struct {
	tx    ports.TxRunner
	clock ports.Clock
	log   *logger.Logger
	obs   ports.Observer
}

// NewAccountLedger construye el libro de saldos.
func NewAccountLedger(tx ports.TxRunner, clock ports.Clock, log *logger.Logger, obs ports.Observer) *AccountLedger {
	if obs == nil {
		obs = ports.NopObserver{}
	}
	return &AccountLedger{tx: tx, clock: clock, log: log.Named("account_ledger"), obs: obs}
}

// CreateClientInput alta de cliente con saldo cero.
type CreateClientInput struct {
	Name  string
	TaxID string
	Email string
}

// AppendInput movimiento en moneda de referencia; positivo = débito al cliente.
type AppendInput struct {
	ClientID        string
	Amount          decimal.Decimal
	Source          entity.SourceRef
	ReferenceNumber string
	Description     string
}

func (in AppendInput) validate() error {
	if in.ClientID == "" {
		return domain.Validation("client_id requerido")
	}
	if in.Amount.IsZero() {
		return domain.Validation("monto del movimiento no puede ser cero")
	}
	if !in.Amount.Equal(money.RoundMoney(in.Amount)) {
		return domain.Validation("monto con más de %d decimales", money.Scale)
	}
	return in.Source.Validate()
}

func (l *AccountLedger) run(ctx context.Context, op, org string, fn func(ports.Repos) error) (err error) {
	start := time.Now()
	defer func() { outcome.Report(l.log, l.obs, op, org, start, err) }()
	return l.tx.Run(ctx, fn)
}

// CreateClient registra un cliente.
func (l *AccountLedger) CreateClient(ctx context.Context, org string, in CreateClientInput) (*entity.Client, error) {
	if org == "" {
		return nil, domain.Validation("organization_id requerido")
	}
	if in.Name == "" {
		return nil, domain.Validation("nombre requerido")
	}
	now := l.clock.Now()
	c := &entity.Client{
		ID:             uuid.NewString(),
		OrganizationID: org,
		Name:           in.Name,
		TaxID:          in.TaxID,
		Email:          in.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := l.run(ctx, "account.create_client", org, func(r ports.Repos) error {
		return r.Clients.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetClient lectura del cliente.
func (l *AccountLedger) GetClient(ctx context.Context, org, id string) (*entity.Client, error) {
	var c *entity.Client
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		c, err = LoadClient(ctx, r, org, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LoadClient carga un cliente verificando el tenant.
func LoadClient(ctx context.Context, r ports.Repos, org, id string) (*entity.Client, error) {
	if id == "" {
		return nil, domain.Validation("client_id requerido")
	}
	c, err := r.Clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, c.OrganizationID); err != nil {
		return nil, err
	}
	return c, nil
}

// AppendInTx agrega un movimiento y actualiza account_balance en la misma transacción,
// bajo el bloqueo del cliente: balance_after = último balance_after + amount.
func (l *AccountLedger) AppendInTx(ctx context.Context, r ports.Repos, org string, in AppendInput) (*entity.ClientAccountMovement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := r.Locks.Lock(ctx, ports.ClientKey(in.ClientID)); err != nil {
		return nil, err
	}
	c, err := r.Clients.GetForUpdate(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, c.OrganizationID); err != nil {
		return nil, err
	}
	last, err := r.AccountMovements.Last(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	prev, seq, date := decimal.Zero, int64(1), now
	if last != nil {
		prev, seq = last.BalanceAfter, last.Sequence+1
		if last.MovementDate.After(now) {
			date = last.MovementDate
		}
	}
	if !prev.Equal(c.AccountBalance) {
		return nil, domain.Invariant("cliente %s: account_balance %s difiere del último balance_after %s", c.ID, c.AccountBalance, prev)
	}

	m := &entity.ClientAccountMovement{
		ID:              uuid.NewString(),
		OrganizationID:  org,
		ClientID:        c.ID,
		Amount:          in.Amount,
		BalanceAfter:    prev.Add(in.Amount),
		Source:          in.Source,
		ReferenceNumber: in.ReferenceNumber,
		Description:     in.Description,
		MovementDate:    date,
		Sequence:        seq,
		CreatedAt:       now,
	}
	c.AccountBalance = m.BalanceAfter
	c.UpdatedAt = now
	if err := r.Clients.Update(ctx, c); err != nil {
		return nil, err
	}
	if err := r.AccountMovements.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Append agrega un movimiento en su propia transacción.
func (l *AccountLedger) Append(ctx context.Context, org string, in AppendInput) (*entity.ClientAccountMovement, error) {
	var m *entity.ClientAccountMovement
	err := l.run(ctx, "account.append", org, func(r ports.Repos) error {
		var err error
		m, err = l.AppendInTx(ctx, r, org, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CompensateInTx agrega el movimiento de signo opuesto que corrige movementID.
// Un movimiento se compensa una sola vez y una compensación no se compensa.
func (l *AccountLedger) CompensateInTx(ctx context.Context, r ports.Repos, org, movementID, description string) (*entity.ClientAccountMovement, error) {
	if movementID == "" {
		return nil, domain.Validation("movement_id requerido")
	}
	orig, err := r.AccountMovements.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, orig.OrganizationID); err != nil {
		return nil, err
	}
	if orig.IsCompensation() {
		return nil, domain.Validation("el movimiento %s ya es una compensación", orig.ID)
	}
	if err := r.Locks.Lock(ctx, ports.ClientKey(orig.ClientID)); err != nil {
		return nil, err
	}
	existing, err := r.AccountMovements.FindCompensation(ctx, orig.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if description == "" {
		description = "compensación de " + orig.ID
	}
	return l.AppendInTx(ctx, r, org, AppendInput{
		ClientID:        orig.ClientID,
		Amount:          orig.Amount.Neg(),
		Source:          orig.Source,
		ReferenceNumber: orig.ID,
		Description:     description,
	})
}

// Compensate compensa un movimiento en su propia transacción.
func (l *AccountLedger) Compensate(ctx context.Context, org, movementID string) (*entity.ClientAccountMovement, error) {
	var m *entity.ClientAccountMovement
	err := l.run(ctx, "account.compensate", org, func(r ports.Repos) error {
		var err error
		m, err = l.CompensateInTx(ctx, r, org, movementID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Balance saldo confirmado del cliente.
func (l *AccountLedger) Balance(ctx context.Context, org, clientID string) (decimal.Decimal, error) {
	c, err := l.GetClient(ctx, org, clientID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.AccountBalance, nil
}

// Movements movimientos del cliente en orden del libro.
func (l *AccountLedger) Movements(ctx context.Context, org, clientID string) ([]*entity.ClientAccountMovement, error) {
	var list []*entity.ClientAccountMovement
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		c, err := LoadClient(ctx, r, org, clientID)
		if err != nil {
			return err
		}
		list, err = r.AccountMovements.ListByClient(ctx, c.ID)
		return err
	})
	return list, err
}
