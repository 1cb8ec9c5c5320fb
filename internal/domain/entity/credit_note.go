package entity

import (
	"time"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// CreditNoteStatus estado de la nota de crédito.
type CreditNoteStatus string

const (
	CreditDraft            CreditNoteStatus = "draft"
	CreditValidated        CreditNoteStatus = "validated"
	CreditBlocked          CreditNoteStatus = "blocked"
	CreditUnblocked        CreditNoteStatus = "unblocked"
	CreditPartiallyApplied CreditNoteStatus = "partially_applied"
	CreditSettled          CreditNoteStatus = "settled"
	CreditCancelled        CreditNoteStatus = "cancelled"
)

// CreditNoteType motivo de la nota de crédito.
type CreditNoteType string

const (
	CreditTypeProductReturn   CreditNoteType = "product_return"   // devuelve mercancía: mueve stock
	CreditTypeCommercialPrice CreditNoteType = "commercial_price" // ajuste de precio, sin stock
	CreditTypeOther           CreditNoteType = "other"
)

// IsValid verifica el tipo.
func (t CreditNoteType) IsValid() bool {
	switch t {
	case CreditTypeProductReturn, CreditTypeCommercialPrice, CreditTypeOther:
		return true
	}
	return false
}

// CreditNote nota de crédito de cliente (origen factura) o de proveedor (origen compra).
// Conserva generated = used + blocked + available en todo momento.
type CreditNote struct {
	ID             string
	OrganizationID string
	Number         string
	Source         SourceRef // factura o documento de compra
	PartyID        string    // cliente o proveedor del documento origen
	Type           CreditNoteType
	Status         CreditNoteStatus
	Currency       string
	ExchangeRate   decimal.Decimal
	Lines          []DocumentLine
	Generated      decimal.Decimal
	Used           decimal.Decimal
	Blocked        decimal.Decimal
	Available      decimal.Decimal
	Reason         string
	Version        int
	ValidatedAt    *time.Time
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreditApplication consumo de crédito contra un documento destino.
type CreditApplication struct {
	ID             string
	OrganizationID string
	CreditNoteID   string
	Target         SourceRef
	Amount         decimal.Decimal
	FromBlocked    bool
	AppliedAt      time.Time
}

// IsSupplierNote indica si la nota nace de un documento de compra.
func (c *CreditNote) IsSupplierNote() bool {
	return c.Source.Kind == SourcePurchase
}

// IsOperable indica si el crédito es visible para bloqueo y aplicación.
func (c *CreditNote) IsOperable() bool {
	switch c.Status {
	case CreditValidated, CreditBlocked, CreditUnblocked, CreditPartiallyApplied:
		return true
	}
	return false
}

// CheckConservation verifica generated = used + blocked + available y que ninguno sea negativo.
func (c *CreditNote) CheckConservation() error {
	for name, v := range map[string]decimal.Decimal{
		"generated": c.Generated, "used": c.Used, "blocked": c.Blocked, "available": c.Available,
	} {
		if v.IsNegative() {
			return domain.Invariant("nota %s: %s negativo (%s)", c.ID, name, v)
		}
	}
	sum := c.Used.Add(c.Blocked).Add(c.Available)
	if !c.Generated.Equal(sum) {
		return domain.Invariant("nota %s: generated %s != used+blocked+available %s", c.ID, c.Generated, sum)
	}
	return nil
}

// Issue inicializa la cuádrupla en borrador: generated = available = amount.
func (c *CreditNote) Issue(amount decimal.Decimal, now time.Time) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	c.Status = CreditDraft
	c.Generated = amount
	c.Available = amount
	c.Used = decimal.Zero
	c.Blocked = decimal.Zero
	c.CreatedAt = now
	c.UpdatedAt = now
	return c.CheckConservation()
}

// Validate draft -> validated, sin cambio aritmético.
func (c *CreditNote) Validate(now time.Time) error {
	if c.Status != CreditDraft {
		return domain.Transition("nota de crédito", string(c.Status), string(CreditValidated))
	}
	c.Status = CreditValidated
	c.ValidatedAt = &now
	c.UpdatedAt = now
	return c.CheckConservation()
}

// Block mueve amount de available a blocked.
func (c *CreditNote) Block(amount decimal.Decimal, now time.Time) error {
	if err := c.requireOperable(CreditBlocked); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(c.Available) {
		return domain.ErrInsufficientAvailableCredit
	}
	c.Available = c.Available.Sub(amount)
	c.Blocked = c.Blocked.Add(amount)
	c.Status = CreditBlocked
	c.UpdatedAt = now
	return c.CheckConservation()
}

// Unblock mueve amount de blocked a available.
func (c *CreditNote) Unblock(amount decimal.Decimal, now time.Time) error {
	if err := c.requireOperable(CreditUnblocked); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(c.Blocked) {
		return domain.Validation("desbloqueo %s supera lo bloqueado %s", amount, c.Blocked)
	}
	c.Blocked = c.Blocked.Sub(amount)
	c.Available = c.Available.Add(amount)
	switch {
	case c.Blocked.IsPositive():
		c.Status = CreditBlocked
	case c.Used.IsPositive():
		c.Status = CreditPartiallyApplied
	default:
		c.Status = CreditUnblocked
	}
	c.UpdatedAt = now
	return c.CheckConservation()
}

// Apply mueve amount a used desde available, o desde blocked si fromBlocked.
func (c *CreditNote) Apply(amount decimal.Decimal, fromBlocked bool, now time.Time) error {
	if err := c.requireOperable(CreditPartiallyApplied); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if fromBlocked {
		if amount.GreaterThan(c.Blocked) {
			return domain.Validation("aplicación %s supera lo bloqueado %s", amount, c.Blocked)
		}
		c.Blocked = c.Blocked.Sub(amount)
	} else {
		if amount.GreaterThan(c.Available) {
			return domain.ErrInsufficientAvailableCredit
		}
		c.Available = c.Available.Sub(amount)
	}
	c.Used = c.Used.Add(amount)
	if c.Available.Add(c.Blocked).IsPositive() {
		c.Status = CreditPartiallyApplied
	} else {
		c.Status = CreditSettled
	}
	c.UpdatedAt = now
	return c.CheckConservation()
}

// Cancel solo desde draft/validated con used = blocked = 0.
func (c *CreditNote) Cancel(now time.Time) error {
	switch c.Status {
	case CreditDraft, CreditValidated:
	default:
		return domain.Transition("nota de crédito", string(c.Status), string(CreditCancelled))
	}
	if !c.Used.IsZero() || !c.Blocked.IsZero() {
		return domain.Transition("nota de crédito", string(c.Status), string(CreditCancelled))
	}
	c.Generated = decimal.Zero
	c.Used = decimal.Zero
	c.Blocked = decimal.Zero
	c.Available = decimal.Zero
	c.Status = CreditCancelled
	c.CancelledAt = &now
	c.UpdatedAt = now
	return c.CheckConservation()
}

func (c *CreditNote) requireOperable(to CreditNoteStatus) error {
	if !c.IsOperable() {
		return domain.Transition("nota de crédito", string(c.Status), string(to))
	}
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.Validation("monto debe ser positivo")
	}
	if !amount.Equal(money.RoundMoney(amount)) {
		return domain.Validation("monto con más de %d decimales", money.Scale)
	}
	return nil
}
