package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/docledger/internal/domain"
	"github.com/jhoicas/docledger/internal/domain/entity"
	"github.com/jhoicas/docledger/internal/domain/repository"
)

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo adaptador de documentos de compra.
type PurchaseRepo struct {
	q Querier
}

// NewPurchaseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseRepository(q Querier) *PurchaseRepo {
	return &PurchaseRepo{q: q}
}

const purchaseColumns = `id, organization_id, supplier_id, number, status, currency, exchange_rate, taxes, totals, lines,
	credit_issued, version, date, validated_at, cancelled_at, created_at, updated_at`

func scanPurchase(row pgx.Row) (*entity.PurchaseDocument, error) {
	var p entity.PurchaseDocument
	var taxes, totals, lines []byte
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.SupplierID, &p.Number, &p.Status, &p.Currency, &p.ExchangeRate,
		&taxes, &totals, &lines,
		&p.CreditIssued, &p.Version, &p.Date, &p.ValidatedAt, &p.CancelledAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeDoc(taxes, totals, lines, &p.Taxes, &p.Totals, &p.Lines); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PurchaseRepo) Create(ctx context.Context, p *entity.PurchaseDocument) error {
	if p.Version == 0 {
		p.Version = 1
	}
	taxes, totals, lines, err := docColumns(p.Taxes, p.Totals, p.Lines)
	if err != nil {
		return err
	}
	query := `INSERT INTO purchase_documents (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = r.q.Exec(ctx, query,
		p.ID, p.OrganizationID, p.SupplierID, p.Number, p.Status, p.Currency, p.ExchangeRate,
		taxes, totals, lines,
		p.CreditIssued, p.Version, p.Date, p.ValidatedAt, p.CancelledAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert purchase document: %w", mapError(err))
	}
	return nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseDocument, error) {
	p, err := scanPurchase(r.q.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchase_documents WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "purchase document "+id)
	}
	return p, nil
}

func (r *PurchaseRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseDocument, error) {
	p, err := scanPurchase(r.q.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchase_documents WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "purchase document "+id)
	}
	return p, nil
}

func (r *PurchaseRepo) Update(ctx context.Context, p *entity.PurchaseDocument) error {
	taxes, totals, lines, err := docColumns(p.Taxes, p.Totals, p.Lines)
	if err != nil {
		return err
	}
	query := `
		UPDATE purchase_documents SET status = $3, taxes = $4, totals = $5, lines = $6, credit_issued = $7,
			validated_at = $8, cancelled_at = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.Version, p.Status, taxes, totals, lines, p.CreditIssued, p.ValidatedAt, p.CancelledAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update purchase document: %w", mapError(err))
	}
	if err := checkUpdated(tag, "purchase document "+p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}
