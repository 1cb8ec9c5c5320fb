package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var (
	_ repository.CreditNoteRepository        = (*CreditNoteRepo)(nil)
	_ repository.CreditApplicationRepository = (*CreditApplicationRepo)(nil)
)

// CreditNoteRepo adaptador de notas de crédito. La tabla exige generated = used + blocked + available.
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

const creditNoteColumns = `id, organization_id, number, source_kind, source_id, party_id, type, status, currency,
	exchange_rate, lines, generated, used, blocked, available, reason, version, validated_at, cancelled_at,
	created_at, updated_at`

func scanCreditNote(row pgx.Row) (*entity.CreditNote, error) {
	var cn entity.CreditNote
	var lines []byte
	err := row.Scan(
		&cn.ID, &cn.OrganizationID, &cn.Number, &cn.Source.Kind, &cn.Source.ID, &cn.PartyID, &cn.Type, &cn.Status,
		&cn.Currency, &cn.ExchangeRate, &lines, &cn.Generated, &cn.Used, &cn.Blocked, &cn.Available, &cn.Reason,
		&cn.Version, &cn.ValidatedAt, &cn.CancelledAt, &cn.CreatedAt, &cn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &cn.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal credit note lines: %w", err)
	}
	return &cn, nil
}

func (r *CreditNoteRepo) Create(ctx context.Context, cn *entity.CreditNote) error {
	if cn.Version == 0 {
		cn.Version = 1
	}
	lines, err := jsonColumn(cn.Lines, "[]")
	if err != nil {
		return err
	}
	query := `INSERT INTO credit_notes (` + creditNoteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = r.q.Exec(ctx, query,
		cn.ID, cn.OrganizationID, cn.Number, cn.Source.Kind, cn.Source.ID, cn.PartyID, cn.Type, cn.Status,
		cn.Currency, cn.ExchangeRate, lines, cn.Generated, cn.Used, cn.Blocked, cn.Available, cn.Reason,
		cn.Version, cn.ValidatedAt, cn.CancelledAt, cn.CreatedAt, cn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert credit note: %w", mapError(err))
	}
	return nil
}

func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	cn, err := scanCreditNote(r.q.QueryRow(ctx, `SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "credit note "+id)
	}
	return cn, nil
}

func (r *CreditNoteRepo) GetForUpdate(ctx context.Context, id string) (*entity.CreditNote, error) {
	cn, err := scanCreditNote(r.q.QueryRow(ctx, `SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "credit note "+id)
	}
	return cn, nil
}

// Update persiste estado y cuádrupla con verificación de versión.
func (r *CreditNoteRepo) Update(ctx context.Context, cn *entity.CreditNote) error {
	query := `
		UPDATE credit_notes SET status = $3, generated = $4, used = $5, blocked = $6, available = $7,
			validated_at = $8, cancelled_at = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		cn.ID, cn.Version, cn.Status, cn.Generated, cn.Used, cn.Blocked, cn.Available,
		cn.ValidatedAt, cn.CancelledAt, cn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update credit note: %w", mapError(err))
	}
	if err := checkUpdated(tag, "credit note "+cn.ID); err != nil {
		return err
	}
	cn.Version++
	return nil
}

func (r *CreditNoteRepo) ListBySource(ctx context.Context, source entity.SourceRef) ([]*entity.CreditNote, error) {
	return r.list(ctx, `WHERE source_kind = $1 AND source_id = $2 ORDER BY created_at, id`, source.Kind, source.ID)
}

func (r *CreditNoteRepo) ListByParty(ctx context.Context, organizationID, partyID string) ([]*entity.CreditNote, error) {
	return r.list(ctx, `WHERE organization_id = $1 AND party_id = $2 ORDER BY created_at, id`, organizationID, partyID)
}

func (r *CreditNoteRepo) list(ctx context.Context, where string, args ...any) ([]*entity.CreditNote, error) {
	rows, err := r.q.Query(ctx, `SELECT `+creditNoteColumns+` FROM credit_notes `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list credit notes: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.CreditNote
	for rows.Next() {
		cn, err := scanCreditNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit note: %w", err)
		}
		list = append(list, cn)
	}
	return list, rows.Err()
}

// CreditApplicationRepo registro append-only de aplicaciones.
type CreditApplicationRepo struct {
	q Querier
}

// NewCreditApplicationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditApplicationRepository(q Querier) *CreditApplicationRepo {
	return &CreditApplicationRepo{q: q}
}

const creditApplicationColumns = `id, organization_id, credit_note_id, target_kind, target_id, amount, from_blocked, applied_at`

func (r *CreditApplicationRepo) Create(ctx context.Context, a *entity.CreditApplication) error {
	query := `INSERT INTO credit_applications (` + creditApplicationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.OrganizationID, a.CreditNoteID, a.Target.Kind, a.Target.ID, a.Amount, a.FromBlocked, a.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit application: %w", mapError(err))
	}
	return nil
}

func (r *CreditApplicationRepo) ListByCreditNote(ctx context.Context, creditNoteID string) ([]*entity.CreditApplication, error) {
	return r.list(ctx, `WHERE credit_note_id = $1 ORDER BY applied_at, id`, creditNoteID)
}

func (r *CreditApplicationRepo) ListByTarget(ctx context.Context, target entity.SourceRef) ([]*entity.CreditApplication, error) {
	return r.list(ctx, `WHERE target_kind = $1 AND target_id = $2 ORDER BY applied_at, id`, target.Kind, target.ID)
}

func (r *CreditApplicationRepo) list(ctx context.Context, where string, args ...any) ([]*entity.CreditApplication, error) {
	rows, err := r.q.Query(ctx, `SELECT `+creditApplicationColumns+` FROM credit_applications `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list credit applications: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.CreditApplication
	for rows.Next() {
		var a entity.CreditApplication
		if err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.CreditNoteID, &a.Target.Kind, &a.Target.ID, &a.Amount, &a.FromBlocked, &a.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("scan credit application: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
