// Package credit implementa el libro de créditos: la cuádrupla conservada
// (generated, used, blocked, available) de cada nota de crédito.
//
// La aplicación de crédito a un documento siempre pasa por la orquestación de documentos,
// que recalcula el neto a pagar del destino en la misma transacción.
package credit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/docledger/internal/application/outcome"
	"github.com/jhoicas/docledger/internal/application/ports"
	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/pkg/logger"
)

// CreditLedger servicio dueño de las notas de crédito.
type CreditLedger struct {
	tx    ports.TxRunner
	clock ports.Clock
	log   *logger.Logger
	obs   ports.Observer
}

// NewCreditLedger construye el libro de créditos.
func NewCreditLedger(tx ports.TxRunner, clock ports.Clock, log *logger.Logger, obs ports.Observer) *CreditLedger {
	if obs == nil {
		obs = ports.NopObserver{}
	}
	return &CreditLedger{tx: tx, clock: clock, log: log.Named("credit_ledger"), obs: obs}
}

// IssueInput emisión de una nota sobre un documento origen.
// Creditable es el tope: total_ttc del origen menos lo ya emitido, leído bajo el bloqueo del origen.
type IssueInput struct {
	Source       entity.SourceRef
	PartyID      string
	Type         entity.CreditNoteType
	Amount       decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
	Lines        []entity.DocumentLine
	Reason       string
	Creditable   decimal.Decimal
}

// ApplyInput consumo de crédito contra un documento destino.
type ApplyInput struct {
	Target      entity.SourceRef
	Amount      decimal.Decimal
	FromBlocked bool
}

// Summary crédito visible de un cliente o proveedor.
type Summary struct {
	PartyID   string          `json:"party_id"`
	Available decimal.Decimal `json:"available"`
	Blocked   decimal.Decimal `json:"blocked"`
	Notes     int             `json:"notes"`
}

func (l *CreditLedger) run(ctx context.Context, op, org string, fn func(ports.Repos) error) (err error) {
	start := time.Now()
	defer func() { outcome.Report(l.log, l.obs, op, org, start, err) }()
	return l.tx.Run(ctx, fn)
}

// LockNote bloquea y carga la nota para escritura dentro de la transacción del caller.
func (l *CreditLedger) LockNote(ctx context.Context, r ports.Repos, org, id string) (*entity.CreditNote, error) {
	if id == "" {
		return nil, domain.Validation("credit_note_id requerido")
	}
	if err := r.Locks.Lock(ctx, ports.CreditNoteKey(id)); err != nil {
		return nil, err
	}
	cn, err := r.CreditNotes.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTenant(org, cn.OrganizationID); err != nil {
		return nil, err
	}
	return cn, nil
}

// IssueInTx crea la nota en draft con generated = available = amount.
// Superar el tope del documento origen es una violación de invariante.
func (l *CreditLedger) IssueInTx(ctx context.Context, r ports.Repos, org string, in IssueInput) (*entity.CreditNote, error) {
	if org == "" {
		return nil, domain.Validation("organization_id requerido")
	}
	if !in.Source.IsDocument() {
		return nil, domain.Validation("la nota de crédito requiere una factura o documento de compra de origen")
	}
	if err := in.Source.Validate(); err != nil {
		return nil, err
	}
	if !in.Type.IsValid() {
		return nil, domain.Validation("tipo de nota de crédito desconocido %q", in.Type)
	}
	if !in.ExchangeRate.IsPositive() {
		return nil, domain.Validation("tasa de cambio debe ser positiva")
	}
	if in.Amount.GreaterThan(in.Creditable) {
		return nil, domain.Invariant("crédito %s supera el monto acreditable %s de %s", in.Amount, in.Creditable, in.Source)
	}

	now := l.clock.Now()
	id := uuid.NewString()
	cn := &entity.CreditNote{
		ID:             id,
		OrganizationID: org,
		Number:         "NC-" + strings.ToUpper(id[:8]),
		Source:         in.Source,
		PartyID:        in.PartyID,
		Type:           in.Type,
		Currency:       in.Currency,
		ExchangeRate:   in.ExchangeRate,
		Lines:          in.Lines,
		Reason:         in.Reason,
	}
	if err := cn.Issue(in.Amount, now); err != nil {
		return nil, err
	}
	if err := r.CreditNotes.Create(ctx, cn); err != nil {
		return nil, err
	}
	return cn, nil
}

// ValidateInTx draft -> validated; la nota queda visible para bloqueo y aplicación.
func (l *CreditLedger) ValidateInTx(ctx context.Context, r ports.Repos, cn *entity.CreditNote) error {
	if err := cn.Validate(l.clock.Now()); err != nil {
		return err
	}
	return r.CreditNotes.Update(ctx, cn)
}

// BlockInTx mueve amount de available a blocked.
func (l *CreditLedger) BlockInTx(ctx context.Context, r ports.Repos, cn *entity.CreditNote, amount decimal.Decimal) error {
	if err := cn.Block(amount, l.clock.Now()); err != nil {
		return err
	}
	return r.CreditNotes.Update(ctx, cn)
}

// UnblockInTx mueve amount de blocked a available.
func (l *CreditLedger) UnblockInTx(ctx context.Context, r ports.Repos, cn *entity.CreditNote, amount decimal.Decimal) error {
	if err := cn.Unblock(amount, l.clock.Now()); err != nil {
		return err
	}
	return r.CreditNotes.Update(ctx, cn)
}

// ApplyInTx mueve amount a used y registra la aplicación contra el destino.
// El caller ya bloqueó el documento destino y actualiza su total_credited.
func (l *CreditLedger) ApplyInTx(ctx context.Context, r ports.Repos, cn *entity.CreditNote, in ApplyInput) (*entity.CreditApplication, error) {
	if !in.Target.IsDocument() {
		return nil, domain.Validation("el crédito se aplica a una factura o documento de compra")
	}
	now := l.clock.Now()
	if err := cn.Apply(in.Amount, in.FromBlocked, now); err != nil {
		return nil, err
	}
	if err := r.CreditNotes.Update(ctx, cn); err != nil {
		return nil, err
	}
	app := &entity.CreditApplication{
		ID:             uuid.NewString(),
		OrganizationID: cn.OrganizationID,
		CreditNoteID:   cn.ID,
		Target:         in.Target,
		Amount:         in.Amount,
		FromBlocked:    in.FromBlocked,
		AppliedAt:      now,
	}
	if err := r.CreditApplications.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// CancelInTx anula la nota (solo sin used ni blocked) y pone la cuádrupla en cero.
func (l *CreditLedger) CancelInTx(ctx context.Context, r ports.Repos, cn *entity.CreditNote) error {
	if err := cn.Cancel(l.clock.Now()); err != nil {
		return err
	}
	return r.CreditNotes.Update(ctx, cn)
}

// Block bloquea crédito en su propia transacción.
func (l *CreditLedger) Block(ctx context.Context, org, id string, amount decimal.Decimal) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := l.run(ctx, "credit.block", org, func(r ports.Repos) error {
		var err error
		if cn, err = l.LockNote(ctx, r, org, id); err != nil {
			return err
		}
		return l.BlockInTx(ctx, r, cn, amount)
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// Unblock libera crédito bloqueado en su propia transacción.
func (l *CreditLedger) Unblock(ctx context.Context, org, id string, amount decimal.Decimal) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := l.run(ctx, "credit.unblock", org, func(r ports.Repos) error {
		var err error
		if cn, err = l.LockNote(ctx, r, org, id); err != nil {
			return err
		}
		return l.UnblockInTx(ctx, r, cn, amount)
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// Get lectura de una nota.
func (l *CreditLedger) Get(ctx context.Context, org, id string) (*entity.CreditNote, error) {
	var cn *entity.CreditNote
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		cn, err = r.CreditNotes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return domain.CheckTenant(org, cn.OrganizationID)
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// Applications aplicaciones registradas de una nota.
func (l *CreditLedger) Applications(ctx context.Context, org, id string) ([]*entity.CreditApplication, error) {
	var apps []*entity.CreditApplication
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		cn, err := r.CreditNotes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CheckTenant(org, cn.OrganizationID); err != nil {
			return err
		}
		apps, err = r.CreditApplications.ListByCreditNote(ctx, id)
		return err
	})
	return apps, err
}

// AvailableCredit suma el crédito disponible y bloqueado de las notas operables del cliente o proveedor.
func (l *CreditLedger) AvailableCredit(ctx context.Context, org, partyID string) (*Summary, error) {
	if org == "" || partyID == "" {
		return nil, domain.Validation("organization_id y party_id requeridos")
	}
	sum := &Summary{PartyID: partyID}
	err := l.tx.Run(ctx, func(r ports.Repos) error {
		notes, err := r.CreditNotes.ListByParty(ctx, org, partyID)
		if err != nil {
			return err
		}
		for _, cn := range notes {
			if !cn.IsOperable() {
				continue
			}
			sum.Available = sum.Available.Add(cn.Available)
			sum.Blocked = sum.Blocked.Add(cn.Blocked)
			sum.Notes++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}
